package analytics

import "context"

// GlobalMetadata is a payload that knows which event it belongs to, so it
// can be sent without naming the event at the call site.
//
//	type SignupData struct{ Plan string }
//
//	func (SignupData) Event() analytics.Event[string, SignupData] { return signup }
//
//	err := analytics.Send[string](ctx, SignupData{Plan: "pro"}, mux)
type GlobalMetadata[N comparable, M any] interface {
	Event() Event[N, M]
}

// Send fires data's own event on h with data as the payload.
func Send[N comparable, M GlobalMetadata[N, M]](ctx context.Context, data M, h Handler[N]) error {
	return data.Event().Fire(ctx, h, data)
}
