package notifications

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const bookInsertedTopic = "/book_inserted"

type ErrNotificationFailed struct {
	statusCode int
}

func (e ErrNotificationFailed) Error() string {
	return fmt.Sprintf("ntfy wrong response - want: 200 OK, got: %d", e.statusCode)
}

type Ntfy struct {
	baseURL string
	enabled bool
	client  *http.Client
}

func NewNtfy(enableNotifications bool, notificationsTimeout time.Duration, notificationsBaseURL string) *Ntfy {
	return &Ntfy{
		baseURL: notificationsBaseURL,
		enabled: enableNotifications,
		client:  &http.Client{Timeout: notificationsTimeout},
	}
}

/* Publishes a "book inserted" message to the ntfy topic. Does nothing when notifications are disabled. */
func (ntf *Ntfy) BookInserted(ctx context.Context, name string, totalCopies int) error {
	if !ntf.enabled {
		return nil
	}

	message := fmt.Sprintf("New book inserted:\nTitle: %s\nTotal copies: %d", name, totalCopies)
	topic := ntf.baseURL + bookInsertedTopic
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, topic, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("delivering message to topic (%s): %w", topic, err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := ntf.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivering message to topic (%s): %w", topic, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrNotificationFailed{statusCode: resp.StatusCode}
	}
	return nil
}
