package slurm

import (
	"regexp"
	"strconv"
	"strings"

	"hatchery-backend/internal"
)

// GPUResource is the GPU portion of a generic-resource string: a template with
// a single count placeholder, and the per-node count the scheduler reported.
type GPUResource struct {
	Template string
	Count    int
}

// One item of a comma-separated gres list. The type may contain dots, dashes
// and underscores but no colon; an optional parenthesized index list follows
// the count, as in "gpu:tesla_v100:4(S:0-1)".
var gpuGresPattern = regexp.MustCompile(`^gpu:([^:(]+):([0-9]+)(?:\(.*\))?$`)

// ParseGPUGres scans a gres string for its first GPU entry and returns it as a
// count template. Non-GPU entries and entries that do not follow the
// "gpu:<type>:<count>" form are skipped; a string without any usable GPU entry,
// including "(null)", is a parse error.
func ParseGPUGres(value string) (GPUResource, error) {
	for _, item := range strings.Split(value, ",") {
		match := gpuGresPattern.FindStringSubmatch(strings.TrimSpace(item))
		if match == nil {
			continue
		}
		count, err := strconv.Atoi(match[2])
		if err != nil {
			continue
		}
		return GPUResource{
			Template: "gpu:" + match[1] + ":{}",
			Count:    count,
		}, nil
	}
	return GPUResource{}, &internal.ParseError{
		Field:  "gres",
		Value:  value,
		Reason: "no gpu entry of the form gpu:<type>:<count>",
	}
}
