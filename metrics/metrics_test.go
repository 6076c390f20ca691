/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryExportsRecordedMetrics(t *testing.T) {
	m := New()
	m.ObserveReadinessWake()
	m.ObserveDuplicateClassification("new")
	m.ObserveDLEPSignal("sent", "Session-Init")
	m.SetDLEPSessionsActive(3)
	m.ObserveMPRSelection("flooding", 2)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.Contains(t, body, "oonf_readiness_wakes_total 1")
	require.Contains(t, body, `oonf_duplicate_set_classifications_total{result="new"} 1`)
	require.Contains(t, body, `oonf_dlep_signals_total{direction="sent",signal="Session-Init"} 1`)
	require.Contains(t, body, "oonf_dlep_sessions_active 3")
	require.Contains(t, body, `oonf_mpr_selections_total{domain="flooding"} 1`)
	require.Contains(t, body, `oonf_mpr_selected_size{domain="flooding"} 2`)
}
