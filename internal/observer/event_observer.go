package observer

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// AnnotationEvent represents an annotation lifecycle event
type AnnotationEvent struct {
	EventType    EventType              `json:"event_type"`
	Timestamp    time.Time              `json:"timestamp"`
	AnnotationID int64                  `json:"annotation_id,omitempty"`
	Operation    string                 `json:"operation"`
	Reason       string                 `json:"reason,omitempty"`
	Duration     time.Duration          `json:"duration"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of annotation event
type EventType string

const (
	// AnnotationCreated when a record is stored
	AnnotationCreated EventType = "annotation_created"
	// AnnotationUpdated when boxes or metadata are replaced
	AnnotationUpdated EventType = "annotation_updated"
	// AnnotationDeleted when a record is removed
	AnnotationDeleted EventType = "annotation_deleted"
	// AnnotationRejected when input fails decoding or validation
	AnnotationRejected EventType = "annotation_rejected"
	// StorageFailed when the backing store returns an error
	StorageFailed EventType = "storage_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event AnnotationEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event AnnotationEvent)
}

// LoggingObserver logs annotation events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles annotation events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event AnnotationEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"operation":  event.Operation,
		"duration":   event.Duration,
	}
	if event.AnnotationID != 0 {
		fields["annotation_id"] = event.AnnotationID
	}
	if event.Reason != "" {
		fields["reason"] = event.Reason
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case AnnotationCreated:
		entry.Info("Annotation created")
	case AnnotationUpdated:
		entry.Info("Annotation updated")
	case AnnotationDeleted:
		entry.Info("Annotation deleted")
	case AnnotationRejected:
		entry.Warn("Annotation rejected")
	case StorageFailed:
		entry.Error("Annotation storage failed")
	default:
		entry.Info("Annotation event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver counts annotation events in prometheus
type MetricsObserver struct {
	events   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetricsObserver registers its collectors on reg
func NewMetricsObserver(reg prometheus.Registerer) (*MetricsObserver, error) {
	o := &MetricsObserver{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "annotator_annotations_events_total",
			Help: "Annotation lifecycle events by type and reason.",
		}, []string{"type", "reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "annotator_annotation_operation_duration_seconds",
			Help:    "Service operation latency by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{o.events, o.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// OnEvent handles annotation events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event AnnotationEvent) {
	o.events.WithLabelValues(string(event.EventType), event.Reason).Inc()
	if event.Operation != "" {
		o.duration.WithLabelValues(event.Operation).Observe(event.Duration.Seconds())
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// Events exposes the event counter for inspection
func (o *MetricsObserver) Events() *prometheus.CounterVec {
	return o.events
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	inflight  sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event. Observers run on their
// own goroutines and never see the caller's cancellation.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event AnnotationEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	ctx = context.WithoutCancel(ctx)
	for _, observer := range observers {
		p.inflight.Add(1)
		go func(obs Observer) {
			defer p.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Wait blocks until every dispatched notification has been handled
func (p *EventPublisher) Wait() {
	p.inflight.Wait()
}
