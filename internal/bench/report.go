package bench

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// VariantResult is the timing outcome of one kernel variant on one
// device. Err, when set, withholds the throughput for that variant.
type VariantResult struct {
	Variant  string
	Elements int
	Flops    int64
	Elapsed  time.Duration
	Err      error
}

// Throughput formats the measured rate, scaled to millions or billions
// for readability. Variants with a known operation count report FLOPS,
// the rest elements per second.
func (r VariantResult) Throughput() string {
	secs := r.Elapsed.Seconds()
	if secs <= 0 {
		return "no measurement"
	}
	if r.Flops > 0 {
		rate := float64(r.Flops) / secs
		if rate >= 1e9 {
			return fmt.Sprintf("%.2f GFLOPS", rate/1e9)
		}
		return fmt.Sprintf("%.2f MFLOPS", rate/1e6)
	}
	rate := float64(r.Elements) / secs
	if rate >= 1e9 {
		return fmt.Sprintf("%.2fG Elements Per Second", rate/1e9)
	}
	return fmt.Sprintf("%.2fM Elements Per Second", rate/1e6)
}

// DeviceResult collects one device's variant results.
type DeviceResult struct {
	Device   string
	Variants []VariantResult
}

// Reporter writes human-readable benchmark results. Devices are
// separated by a blank line; verification failures print in place of
// the throughput.
type Reporter struct {
	w io.Writer
}

func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Device prints one device's results.
func (r *Reporter) Device(res DeviceResult) {
	fmt.Fprintln(r.w, res.Device)
	for _, v := range res.Variants {
		fmt.Fprintf(r.w, "%-15s", v.Variant+":")
		switch {
		case errors.Is(v.Err, ErrVerification):
			fmt.Fprintln(r.w, "invalid computation from device")
		case v.Err != nil:
			fmt.Fprintf(r.w, "error: %v\n", v.Err)
		default:
			fmt.Fprintln(r.w, v.Throughput())
		}
	}
	fmt.Fprintln(r.w)
}
