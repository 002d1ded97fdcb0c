// Package idempotency replays previously saved responses for mutating
// endpoints when the client resends the same Idempotency-Key.
package idempotency

import "context"

type Caller struct {
	Account        string
	IdempotencyKey string
}

type Store interface {
	GetIdempotencyRecord(ctx context.Context, account, idempotencyKey, endpoint string) (int, map[string]any, bool, error)
	SaveIdempotencyRecord(ctx context.Context, account, idempotencyKey, endpoint string, responseStatus int, responseBody map[string]any) error
}

func Replay(ctx context.Context, st Store, caller Caller, endpoint string) (int, map[string]any, bool, error) {
	if caller.IdempotencyKey == "" || st == nil {
		return 0, nil, false, nil
	}
	status, body, found, err := st.GetIdempotencyRecord(ctx, caller.Account, caller.IdempotencyKey, endpoint)
	if err != nil {
		return 0, nil, false, err
	}
	if !found {
		return 0, nil, false, nil
	}
	return status, body, true, nil
}

func Save(ctx context.Context, st Store, caller Caller, endpoint string, status int, response map[string]any) error {
	if caller.IdempotencyKey == "" || st == nil {
		return nil
	}
	return st.SaveIdempotencyRecord(ctx, caller.Account, caller.IdempotencyKey, endpoint, status, response)
}
