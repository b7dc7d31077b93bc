package postgres

import (
	"context"
	"log"
	"sync"
)

// WatchUser holds a dedicated connection LISTENing on the chat_changes
// channel and forwards ticks whose payload matches userID. The connection
// is released when the stop function runs or ctx is cancelled.
func (s *PostgresStore) WatchUser(ctx context.Context, userID string) (<-chan struct{}, func(), error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	if _, err := conn.Exec(ctx, `LISTEN `+changeChannel); err != nil {
		conn.Release()
		return nil, nil, err
	}

	ticks := make(chan struct{}, 1)
	watchCtx, cancel := context.WithCancel(ctx)

	var once sync.Once
	stop := func() { once.Do(cancel) }

	go func() {
		defer conn.Release()
		defer close(ticks)
		for {
			n, err := conn.Conn().WaitForNotification(watchCtx)
			if err != nil {
				if watchCtx.Err() == nil {
					log.Printf("WARN [PostgresStore] WatchUser: notification wait ended for user %s: %v", userID, err)
				}
				return
			}
			if n.Payload != userID {
				continue
			}
			select {
			case ticks <- struct{}{}:
			default:
			}
		}
	}()

	return ticks, stop, nil
}
