package checkin

import "context"

type stationKey struct{}

// WithStation tags ctx with the id of the scanning station; it is recorded on
// the ticket as checked_in_by.
func WithStation(ctx context.Context, stationID string) context.Context {
	return context.WithValue(ctx, stationKey{}, stationID)
}

func StationFromContext(ctx context.Context) string {
	id, _ := ctx.Value(stationKey{}).(string)
	return id
}
