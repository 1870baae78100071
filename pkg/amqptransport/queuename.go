package amqptransport

import (
	"fmt"
	"hash/fnv"
)

// QueueName derives a deterministic queue name so every replica of a
// binding ends up consuming the same shared queue:
// "exchange.routingKey.<8 hex chars of fnv1a(exchange + "." + routingKey)>".
func QueueName(exchange, routingKey string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(exchange))
	_, _ = h.Write([]byte("."))
	_, _ = h.Write([]byte(routingKey))
	return fmt.Sprintf("%s.%s.%08x", exchange, routingKey, h.Sum32())
}
