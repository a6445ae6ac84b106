package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSetMetrics(t *testing.T) {
	metrics := NewSetMetrics("")
	assert.NotNil(t, metrics.Inserts)
	assert.NotNil(t, metrics.Epochs)

	metrics = NewSetMetrics(":9099")
	assert.NotNil(t, metrics.Inserts)
	assert.NotNil(t, metrics.Epochs)
}
