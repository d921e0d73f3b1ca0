package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProbeResult describes a reachable broker and the topic's visibility.
type ProbeResult struct {
	Broker     string
	Partitions int
	Leaders    int
}

// Probe dials the first reachable broker, checks ApiVersions and looks up
// topic. Partitions is zero when the topic does not exist yet.
func Probe(ctx context.Context, brokers []string, topic string, timeout time.Duration) (*ProbeResult, error) {
	brokers = cleanBrokers(brokers)
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	dialer := &kafka.Dialer{Timeout: timeout}

	var errs []error
	for _, addr := range brokers {
		res, err := probeBroker(ctx, dialer, addr, topic, timeout)
		if err == nil {
			return res, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", addr, err))
	}
	return nil, errors.Join(errs...)
}

func probeBroker(ctx context.Context, dialer *kafka.Dialer, addr, topic string, timeout time.Duration) (*ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	if _, err := conn.ApiVersions(); err != nil {
		return nil, fmt.Errorf("api versions: %w", err)
	}
	parts, err := conn.ReadPartitions()
	if err != nil {
		return nil, fmt.Errorf("read partitions: %w", err)
	}
	res := &ProbeResult{Broker: addr}
	for _, p := range parts {
		if p.Topic != topic {
			continue
		}
		res.Partitions++
		if p.Leader.Host != "" {
			res.Leaders++
		}
	}
	return res, nil
}
