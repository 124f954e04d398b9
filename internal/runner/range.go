package runner

import "fmt"

// RequestRange is an inclusive range of 1-based request numbers.
type RequestRange struct {
	From uint64
	To   uint64
}

// SplitRange splits a request range into batches of size batchSize.
func SplitRange(from, to, batchSize uint64) ([]RequestRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to request must be >= from request")
	}

	ranges := make([]RequestRange, 0, (to-from)/batchSize+1)
	for start := from; ; start += batchSize {
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, RequestRange{From: start, To: end})
		if end == to {
			break
		}
	}

	return ranges, nil
}
