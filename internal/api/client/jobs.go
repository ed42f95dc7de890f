package client

import (
	"context"
	"net/url"
	"strconv"

	domain "github.com/donaldgifford/print-price-matrix/pkg/types"
)

// GetJobHistory returns the run history for a scheduled maintenance job.
func (c *Client) GetJobHistory(ctx context.Context, jobName string, limit int) ([]domain.JobRun, error) {
	path := "/api/v1/jobs/" + url.PathEscape(jobName)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var runs []domain.JobRun
	if err := c.get(ctx, path, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}
