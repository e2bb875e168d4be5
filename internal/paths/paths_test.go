package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayout(t *testing.T) {
	l := New("data")

	assert.Equal(t, filepath.Join("data", "jobq.db"), l.StoreDB())
	assert.Equal(t, filepath.Join("data", "consumer__default.db"), l.QueueDB("default"))
	assert.Equal(t, filepath.Join("data", "logs"), l.LogsDir())
	assert.Equal(t, filepath.Join("data", "logs", "consumer__reserved.log"), l.ConsumerLog("reserved"))
	assert.Equal(t, filepath.Join("data", "logs", "consumer__reserved.pid"), l.ConsumerPIDFile("reserved"))
	assert.Equal(t, filepath.Join("data", "logs", "jobs"), l.JobLogsDir())
	assert.Equal(t, filepath.Join("data", "logs", "jobs", "job_abc_retry_2.txt"), l.JobLog("abc", 2))
}
