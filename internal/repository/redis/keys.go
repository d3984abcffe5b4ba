package redis

import (
	"fmt"

	"github.com/google/uuid"
)

const ns = "evently:v1"

func KeyEventSummary(eventID uuid.UUID) string {
	return fmt.Sprintf("%s:event:%s:summary", ns, eventID)
}

func KeyEventAvailability(eventID uuid.UUID) string {
	return fmt.Sprintf("%s:event:%s:availability", ns, eventID)
}

func KeyEventList() string {
	return ns + ":events:list"
}

func ChannelCapacityChanged() string {
	return ns + ":capacity:changed"
}
