package feed

import (
	"encoding/json"
	"fmt"

	"github.com/QingfengHuu/trending-nft/internal/events"
)

// PublishEvent gossips one committed event to the network.
func (f *Feed) PublishEvent(ev events.Event) error {
	if f.topic == nil {
		return fmt.Errorf("feed not started")
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return f.topic.Publish(f.ctx, data)
}
