package gap

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	Storage  ObjectStorage
	Notifier Publisher
)

// InitializeExternals connects to the object storage and the message broker.
// A broker that cannot be reached only disables notifications.
func InitializeExternals() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	storage, err := NewS3Storage(ctx)
	if err != nil {
		return err
	}
	if err := storage.EnsureBucket(ctx); err != nil {
		return err
	}
	Storage = storage

	if notifier, err := NewNatsNotifier(); err != nil {
		log.Error().Err(err).Msg("An error occurred when connecting to broker, notifications will be disabled.")
	} else {
		Notifier = notifier
		log.Info().Msg("Connected to broker.")
	}

	return nil
}

func Close() {
	if closer, ok := Notifier.(interface{ Close() }); ok {
		closer.Close()
	}
}
