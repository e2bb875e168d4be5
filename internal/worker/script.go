package worker

import (
	"encoding/json"
	"fmt"

	"github.com/mpreston/jobq/internal/store"
)

// runScript executes a type=script job. The command field names a
// registered script; meta is its input, with the job id injected under
// "job_id". Structured output is appended to the job log.
func (r *Runtime) runScript(job *store.Job) error {
	script, err := r.registry.Get(job.Command)
	if err != nil {
		return err
	}

	meta := make(map[string]interface{}, len(job.Meta)+1)
	for k, v := range job.Meta {
		meta[k] = v
	}
	meta["job_id"] = job.ID.String()

	if !script.ValidateInput(meta) {
		return fmt.Errorf("script %q rejected its input", job.Command)
	}

	r.appendJobLog(job, fmt.Sprintf("running script %q\n", job.Command))

	out, err := script.Run(meta)
	if err != nil {
		return fmt.Errorf("script %q failed: %w", job.Command, err)
	}

	encoded, merr := json.MarshalIndent(out, "", "  ")
	if merr != nil {
		encoded = []byte(fmt.Sprintf("%+v", out))
	}
	r.appendJobLog(job, string(encoded)+"\n")

	if !out.Success {
		return fmt.Errorf("script %q reported failure: %s", job.Command, out.Message)
	}
	return nil
}
