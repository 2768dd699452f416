package plex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ButlerTasks lists the server's scheduled maintenance tasks.
func (c *Client) ButlerTasks(ctx context.Context) ([]ButlerTask, error) {
	endpoint := fmt.Sprintf("%s/butler", c.baseURL)

	var out struct {
		ButlerTasks struct {
			ButlerTask []ButlerTask `json:"ButlerTask"`
		} `json:"ButlerTasks"`
	}
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}

	return out.ButlerTasks.ButlerTask, nil
}

// RunButlerTask starts one maintenance task immediately.
func (c *Client) RunButlerTask(ctx context.Context, task string) error {
	endpoint := fmt.Sprintf("%s/butler/%s", c.baseURL, url.PathEscape(task))
	return c.post(ctx, endpoint, nil, nil)
}

// StopButlerTask cancels a running maintenance task.
func (c *Client) StopButlerTask(ctx context.Context, task string) error {
	endpoint := fmt.Sprintf("%s/butler/%s", c.baseURL, url.PathEscape(task))
	return c.delete(ctx, endpoint)
}

// Bandwidth returns bandwidth statistics at the given timespan
// granularity (6 = hourly is the server default).
func (c *Client) Bandwidth(ctx context.Context, timespan int) ([]BandwidthSample, error) {
	endpoint := fmt.Sprintf("%s/statistics/bandwidth", c.baseURL)
	if timespan > 0 {
		endpoint = fmt.Sprintf("%s?timespan=%s", endpoint, strconv.Itoa(timespan))
	}

	var out struct {
		MediaContainer struct {
			StatisticsBandwidth []BandwidthSample `json:"StatisticsBandwidth"`
		} `json:"MediaContainer"`
	}
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}

	return out.MediaContainer.StatisticsBandwidth, nil
}

// Resources returns host and server process utilization samples.
func (c *Client) Resources(ctx context.Context) ([]ResourceSample, error) {
	endpoint := fmt.Sprintf("%s/statistics/resources?timespan=6", c.baseURL)

	var out struct {
		MediaContainer struct {
			StatisticsResources []ResourceSample `json:"StatisticsResources"`
		} `json:"MediaContainer"`
	}
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}

	return out.MediaContainer.StatisticsResources, nil
}

// DownloadLogs fetches the server log archive as a zip.
func (c *Client) DownloadLogs(ctx context.Context) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/diagnostics/logs", c.baseURL)
	return c.download(ctx, endpoint)
}
