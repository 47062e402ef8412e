package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"kds-display-backend/internal/model"
	"kds-display-backend/internal/store"
)

// MessageDisplayLinksChanged tells a subscribed device to reload a display's queues.
const MessageDisplayLinksChanged = "display-links-changed"

// Message is the push payload.
type Message struct {
	Type      string `json:"type"`
	DisplayID int64  `json:"displayId"`
}

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool fans display change notifications out to subscribed devices.
type WorkerPool struct {
	size    int
	jobs    chan int64
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size*16),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Worker %d started", id)
	for {
		select {
		case displayID := <-wp.jobs:
			wp.sendNotificationsForDisplay(ctx, displayID)
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a notification for a display. It never blocks; when the
// queue is full the notification is dropped.
func (wp *WorkerPool) Dispatch(displayID int64) bool {
	select {
	case wp.jobs <- displayID:
		return true
	default:
		log.Printf("Warning: notification queue full, dropping change for display %d", displayID)
		return false
	}
}

// DisplayChanged implements linking.Notifier.
func (wp *WorkerPool) DisplayChanged(_ context.Context, displayID int64) {
	wp.Dispatch(displayID)
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int64 {
	return wp.jobs
}

func (wp *WorkerPool) sendNotificationsForDisplay(ctx context.Context, displayID int64) {
	subscriptions, err := wp.store.SubscriptionsForDisplay(ctx, displayID)
	if err != nil {
		log.Printf("Error fetching subscriptions for display %d: %v", displayID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(Message{Type: MessageDisplayLinksChanged, DisplayID: displayID})
	if err != nil {
		log.Printf("Error encoding notification for display %d: %v", displayID, err)
		return
	}

	log.Printf("Sending %d notifications for display %d", len(subscriptions), displayID)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
