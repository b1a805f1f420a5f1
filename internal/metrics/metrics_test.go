// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordMessage verifies outcomes are counted under their label.
func TestRecordMessage(t *testing.T) {
	before := testutil.ToFloat64(MessagesProcessed.WithLabelValues("blocked"))
	RecordMessage("blocked")
	RecordMessage("blocked")
	after := testutil.ToFloat64(MessagesProcessed.WithLabelValues("blocked"))
	if after-before != 2 {
		t.Errorf("blocked delta = %v, want 2", after-before)
	}
}

// TestRecordDBQuery_Slow verifies the slow counter only moves for slow queries.
func TestRecordDBQuery_Slow(t *testing.T) {
	before := testutil.ToFloat64(SlowQueries)
	RecordDBQuery("ok", time.Millisecond, false)
	RecordDBQuery("ok", time.Second, true)
	if got := testutil.ToFloat64(SlowQueries) - before; got != 1 {
		t.Errorf("slow query delta = %v, want 1", got)
	}
}

// TestStatus verifies the error-to-label mapping.
func TestStatus(t *testing.T) {
	if got := Status(nil); got != "ok" {
		t.Errorf("Status(nil) = %q, want %q", got, "ok")
	}
	if got := Status(errors.New("x")); got != "error" {
		t.Errorf("Status(err) = %q, want %q", got, "error")
	}
}
