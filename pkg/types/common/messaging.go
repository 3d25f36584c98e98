// Package common holds small message-transport types shared between the
// messaging infrastructure package and its callers, so that neither side
// depends on segmentio/kafka-go's wire types directly.
package common

import (
	"context"
	"time"
)

// Message is an inbound message read from a topic; kafka's
// MessageToEventEnvelope decodes its Value.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string]string
}

// MessageHandler processes a single inbound Message and reports failure as
// a non-nil error. This module has no consumer that invokes a
// MessageHandler, so no retry or dead-letter handling is attached to it.
type MessageHandler func(ctx context.Context, msg *Message) error

// ProducerMessage is an outbound message handed to a Producer.
type ProducerMessage struct {
	Topic     string
	Partition int
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// BatchItemError records one failed message within a PublishBatch call.
type BatchItemError struct {
	Index int
	Topic string
	Error error
}

// BatchPublishResult summarizes the outcome of a PublishBatch call.
type BatchPublishResult struct {
	Succeeded int
	Failed    int
	Errors    []BatchItemError
}

// TopicConfig describes a topic to be created or ensured to exist.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
	CleanupPolicy     string
	MaxMessageBytes   int
	Configs           map[string]string
}
