package ogawa

import "math"

// acyclicTimePerCycle is the sentinel time_per_cycle value (f64::MAX/32)
// that marks a [TimeSampling] as acyclic rather than cyclic.
var acyclicTimePerCycle = math.MaxFloat64 / 32.0

// acyclicNumSamplesPerCycle is the sentinel num_samples_per_cycle paired
// with the acyclic time_per_cycle sentinel.
const acyclicNumSamplesPerCycle = math.MaxUint32

// TimeSampling describes the time axis shared by one or more properties:
// cyclic (with explicit per-cycle sample times) or acyclic (sentinel
// values, no fixed cycle).
type TimeSampling struct {
	NumSamplesPerCycle uint32
	TimePerCycle       float64
	Samples            []float64
}

// Acyclic reports whether this sampling uses the acyclic sentinel.
func (t TimeSampling) Acyclic() bool { return t.TimePerCycle == acyclicTimePerCycle }

// readTimeSamplingsAndMax decodes the archive-wide time-samplings table
// from a single data chunk: a sequence of (u32 max_sample, f64
// time_per_cycle, u32 num_samples_per_cycle, num_samples_per_cycle x f64
// samples) records, read until the chunk is exhausted.
func readTimeSamplingsAndMax(src ByteSource, d DataChunk) ([]TimeSampling, []int64, error) {
	if d.Size == 0 {
		return nil, nil, nil
	}

	payload, err := d.ReadAll(src)
	if err != nil {
		return nil, nil, err
	}

	var samplings []TimeSampling
	var maxSamples []int64

	pos := uint64(0)
	size := uint64(len(payload))

	for pos < size {
		maxSample := le.Uint32(payload[pos:])
		pos += 4

		timePerCycle := math.Float64frombits(le.Uint64(payload[pos:]))
		pos += 8

		onDiskNumSamples := le.Uint32(payload[pos:])
		pos += 4

		samples := make([]float64, onDiskNumSamples)
		for i := range samples {
			samples[i] = math.Float64frombits(le.Uint64(payload[pos:]))
			pos += 8
		}

		// The exposed sampling type overrides both fields to the acyclic
		// sentinels once the sentinel time_per_cycle is observed; the
		// on-disk num_samples_per_cycle above is only used to size the
		// samples read above.
		numSamplesPerCycle := onDiskNumSamples
		if timePerCycle == acyclicTimePerCycle {
			numSamplesPerCycle = acyclicNumSamplesPerCycle
		}

		samplings = append(samplings, TimeSampling{
			NumSamplesPerCycle: numSamplesPerCycle,
			TimePerCycle:       timePerCycle,
			Samples:            samples,
		})
		maxSamples = append(maxSamples, int64(maxSample))
	}

	return samplings, maxSamples, nil
}
