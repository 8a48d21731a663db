package timeline

import (
	"fmt"
)

// DataAvailabilityError reports a required category with no usable row
// anywhere in the sequence. The dashboard cannot render without it.
type DataAvailabilityError struct {
	Category Category
}

func (e *DataAvailabilityError) Error() string {
	return fmt.Sprintf("no row has data for required category %q", e.Category)
}

// UserMessage is the notice shown to end users instead of Error().
func (e *DataAvailabilityError) UserMessage() string {
	return "The latest COVID-19 data could not be loaded right now. Please check back later."
}

// ContiguityError reports a row whose date is not exactly one day after the
// previous row. Look-back windows count rows, so a gap would skew them.
type ContiguityError struct {
	Index    int
	Previous string
	Date     string
}

func (e *ContiguityError) Error() string {
	return fmt.Sprintf("row %d: date %s does not follow %s by one day", e.Index, e.Date, e.Previous)
}

// UserMessage is the notice shown to end users instead of Error().
func (e *ContiguityError) UserMessage() string {
	return "The COVID-19 data feed is incomplete right now. Please check back later."
}

// DateError reports a row date that cannot be parsed.
type DateError struct {
	Index int
	Value string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("row %d: invalid date %q: expected YYYY-MM-DD", e.Index, e.Value)
}
