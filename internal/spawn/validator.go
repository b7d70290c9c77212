package spawn

import (
	"errors"
	"fmt"
	"time"

	"hatchery-backend/internal"
	"hatchery-backend/internal/partition"
	"hatchery-backend/internal/slurm"

	"github.com/go-playground/validator/v10"
)

// SyntaxViolations checks field shape only: newline injection, memory and
// duration syntax, URL path form. It needs no partition record, so it can run
// even when the target partition is unknown.
func SyntaxViolations(validate *validator.Validate, opts UserOptions) []internal.Violation {
	var violations []internal.Violation

	err := validate.Struct(opts)
	if err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fieldError := range fieldErrors {
				violations = append(violations, internal.Violation{
					Field:   fieldError.Field(),
					Message: violationMessage(fieldError),
				})
			}
		} else {
			violations = append(violations, internal.Violation{
				Field:   "request",
				Message: err.Error(),
			})
		}
	}

	if opts.Runtime != "" {
		_, err := slurm.ParseTimeLimit(opts.Runtime)
		if err != nil {
			violations = append(violations, internal.Violation{
				Field:   "runtime",
				Message: "must be [days-]hours[:minutes[:seconds]] or \"infinite\"",
			})
		}
	}

	return violations
}

func violationMessage(fieldError validator.FieldError) string {
	switch fieldError.Tag() {
	case "required":
		return "is required"
	case "nonewline":
		return "must not contain newline characters"
	case "slurmmem":
		return "must be digits with an optional K, M, G or T suffix"
	case "urlpath":
		return "must be empty or start with /"
	case "min":
		return "must be at least " + fieldError.Param()
	default:
		return "failed " + fieldError.Tag() + " check"
	}
}

// LimitViolations checks the request against the partition's reconciled
// limits. Syntactically broken fields are skipped here; the syntax pass
// already reported them.
func LimitViolations(opts UserOptions, info partition.Info) []internal.Violation {
	var violations []internal.Violation

	if opts.NProcs > info.MaxCoresPerNode {
		violations = append(violations, internal.Violation{
			Field:   "nprocs",
			Message: fmt.Sprintf("requested %d cores, partition %q allows at most %d per node", opts.NProcs, info.Name, info.MaxCoresPerNode),
		})
	}

	if opts.NGPUs > info.MaxGPUs {
		violations = append(violations, internal.Violation{
			Field:   "ngpus",
			Message: fmt.Sprintf("requested %d gpus, partition %q allows at most %d", opts.NGPUs, info.Name, info.MaxGPUs),
		})
	}

	if opts.Runtime != "" {
		runtime, err := slurm.ParseTimeLimit(opts.Runtime)
		if err == nil && int(runtime/time.Second) > info.MaxRuntimeSeconds {
			violations = append(violations, internal.Violation{
				Field:   "runtime",
				Message: fmt.Sprintf("requested %s exceeds the partition limit of %d seconds", opts.Runtime, info.MaxRuntimeSeconds),
			})
		}
	}

	return violations
}

// Validate runs both passes and returns every violation found, so a user can
// fix the whole request in one round trip.
func Validate(validate *validator.Validate, opts UserOptions, info partition.Info) []internal.Violation {
	violations := SyntaxViolations(validate, opts)
	return append(violations, LimitViolations(opts, info)...)
}
