package prometheus

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/turtacn/platemap/pkg/errors"
)

// WriteTextfile writes the gathered metrics in text exposition format to
// path, for node_exporter's textfile collector.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return errors.Wrapf(err, errors.ErrCodeMetricsExport, "write metrics textfile %s", path)
	}
	return nil
}

// Push sends the gathered metrics to a Pushgateway under job, grouped by
// the given labels.
func Push(ctx context.Context, g prometheus.Gatherer, url, job string, grouping map[string]string) error {
	p := push.New(url, job).Gatherer(g)
	for k, v := range grouping {
		p = p.Grouping(k, v)
	}
	if err := p.PushContext(ctx); err != nil {
		return errors.Wrapf(err, errors.ErrCodeMetricsExport, "push metrics to %s", url)
	}
	return nil
}

//Personal.AI order the ending
