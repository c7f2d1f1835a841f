package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestRecordRebuild(t *testing.T) {
	RecordRebuild("rebuild-test", 25*time.Millisecond, 7, 3)
	RecordRebuild("rebuild-test", 10*time.Millisecond, 8, 3)

	body := scrape(t)
	assert.Contains(t, body, `vdfs_rebuilds_total{mount="rebuild-test"} 2`)
	assert.Contains(t, body, `vdfs_indexed_documents{mount="rebuild-test"} 8`)
	assert.Contains(t, body, `vdfs_indexed_folders{mount="rebuild-test"} 3`)
	assert.Contains(t, body, `vdfs_rebuild_duration_seconds_count{mount="rebuild-test"} 2`)
}

func TestRecordPersist(t *testing.T) {
	RecordPersist("persist-test", true)
	RecordPersist("persist-test", false)
	RecordPersist("persist-test", false)

	body := scrape(t)
	assert.Contains(t, body, `vdfs_persist_total{mount="persist-test",status="success"} 1`)
	assert.Contains(t, body, `vdfs_persist_total{mount="persist-test",status="error"} 2`)

	Forget("persist-test")
	assert.NotContains(t, scrape(t), `mount="persist-test"`)
}

func TestRecordFilterCompilation(t *testing.T) {
	RecordFilterCompilation("filter-test")
	RecordWatchEvent()

	body := scrape(t)
	assert.Contains(t, body, `vdfs_filter_compilations_total{mount="filter-test"} 1`)
	assert.Contains(t, body, "vdfs_watch_events_total")
}
