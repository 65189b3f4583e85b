package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reference code prefixes printed on documents handed to the public.
const (
	PrefixBusiness   = "BUS"
	PrefixAssignment = "ASG"
	PrefixReceipt    = "RCP"
)

const referenceSuffixLen = 6

// NewReference returns a human-readable code such as BUS-4F09A2.
func NewReference(prefix string) string {
	return prefix + "-" + referenceSuffix()
}

// NewDatedReference embeds the calendar day, e.g. RCP-20260301-4F09A2.
func NewDatedReference(prefix string, t time.Time) string {
	return prefix + "-" + t.UTC().Format("20060102") + "-" + referenceSuffix()
}

func referenceSuffix() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:referenceSuffixLen])
}
