package kafka

import "github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/monitoring/logging"

// newMockLogger gives Producer/TopicManager tests a Logger that discards
// everything, shared across producer_test.go and topics_test.go.
func newMockLogger() logging.Logger { return logging.NewNopLogger() }
