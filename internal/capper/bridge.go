package capper

// SelectionHandler reacts to a selected presentation entry.
type SelectionHandler[T any] func(Entry[T])

// FilterSink receives a filter request carrying category keys. The
// Others drill-in sends the bucket's absorbed keys through it.
type FilterSink func(keys []string)

// WrapSelection decorates a selection handler: selecting a bucket entry
// first sends its absorbed keys to the sink, then the previous handler
// runs; raw entries go straight to the previous handler. Wraps compose,
// each running in the order installed, and never discard the handler
// they wrap.
func WrapSelection[T any](prev SelectionHandler[T], sink FilterSink) SelectionHandler[T] {
	return func(e Entry[T]) {
		if e.Bucket != nil && sink != nil {
			keys := append([]string(nil), e.Bucket.Keys...)
			sink(keys)
		}
		if prev != nil {
			prev(e)
		}
	}
}
