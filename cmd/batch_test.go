package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/lead-engine/internal/model"
)

func TestPrintProgress(t *testing.T) {
	tests := []struct {
		name string
		p    model.BatchJobProgress
		want string
	}{
		{
			name: "in flight",
			p:    model.BatchJobProgress{Status: model.JobProcessing, TotalItems: 3, ProcessedItems: 1, SuccessfulItems: 1, PercentComplete: 33, CurrentItem: "Ada @ Acme"},
			want: "[ 33%] PROCESSING 1/3 (ok 1, failed 0) Ada @ Acme\n",
		},
		{
			name: "aborted",
			p:    model.BatchJobProgress{Status: model.JobCompleted, TotalItems: 4, ProcessedItems: 2, SuccessfulItems: 2, PercentComplete: 50, Aborted: true},
			want: "[ 50%] COMPLETED 2/4 (ok 2, failed 0) aborted\n",
		},
		{
			name: "failed",
			p:    model.BatchJobProgress{Status: model.JobFailed, Error: "batch: interrupted"},
			want: "[  0%] FAILED 0/0 (ok 0, failed 0) error: batch: interrupted\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printProgress(&buf, tt.p)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
