package slurm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hatchery-backend/internal"
	"go.uber.org/zap"
)

// Column identifies the semantic of one whitespace-separated field of a status
// line. The scheduler command and the column layout are configured together,
// so deployments can reshape the sinfo format string without code changes.
type Column string

const (
	ColumnPartition      Column = "partition"
	ColumnCluster        Column = "cluster"
	ColumnState          Column = "state"
	ColumnNodes          Column = "nodes"
	ColumnMaxCPUsPerNode Column = "max_cpus_per_node"
	ColumnCPUs           Column = "cpus"
	ColumnGres           Column = "gres"
	ColumnGresUsed       Column = "gres_used"
	ColumnMemory         Column = "memory"
	ColumnTimeLimit      Column = "timelimit"
)

// DefaultColumns matches `sinfo -a --noheader -o "%R %F %c %C %G %m %l"`.
var DefaultColumns = []Column{
	ColumnPartition,
	ColumnNodes,
	ColumnMaxCPUsPerNode,
	ColumnCPUs,
	ColumnGres,
	ColumnMemory,
	ColumnTimeLimit,
}

var knownColumns = map[Column]bool{
	ColumnPartition:      true,
	ColumnCluster:        true,
	ColumnState:          true,
	ColumnNodes:          true,
	ColumnMaxCPUsPerNode: true,
	ColumnCPUs:           true,
	ColumnGres:           true,
	ColumnGresUsed:       true,
	ColumnMemory:         true,
	ColumnTimeLimit:      true,
}

// requiredColumns are the columns a layout must carry to yield a complete
// resource record. Cluster, state and the gres variants are optional.
var requiredColumns = []Column{
	ColumnPartition,
	ColumnNodes,
	ColumnMaxCPUsPerNode,
	ColumnCPUs,
	ColumnMemory,
	ColumnTimeLimit,
}

// ParseColumns converts a configured column list into typed columns.
func ParseColumns(names []string) ([]Column, error) {
	columns := make([]Column, 0, len(names))
	for _, name := range names {
		column := Column(name)
		if !knownColumns[column] {
			return nil, &internal.ConfigurationError{
				Reason: fmt.Sprintf("unknown status column %q", name),
			}
		}
		columns = append(columns, column)
	}
	return columns, nil
}

// Parser turns raw scheduler status text into aggregated per-partition
// records. A partition spread over several lines, for example one line per
// node state or per cluster row, is folded into a single record.
type Parser struct {
	logger  *zap.Logger
	columns []Column
	indexes map[Column]int
}

func NewParser(logger *zap.Logger, columns []Column) (*Parser, error) {
	indexes := make(map[Column]int, len(columns))
	for i, column := range columns {
		if !knownColumns[column] {
			return nil, &internal.ConfigurationError{
				Reason: fmt.Sprintf("unknown status column %q", column),
			}
		}
		if _, ok := indexes[column]; ok {
			return nil, &internal.ConfigurationError{
				Reason: fmt.Sprintf("duplicate status column %q", column),
			}
		}
		indexes[column] = i
	}
	for _, column := range requiredColumns {
		if _, ok := indexes[column]; !ok {
			return nil, &internal.ConfigurationError{
				Reason: fmt.Sprintf("status column layout is missing %q", column),
			}
		}
	}
	return &Parser{
		logger:  logger,
		columns: columns,
		indexes: indexes,
	}, nil
}

// row is one parsed status line before aggregation.
type row struct {
	cluster   string
	partition string

	state    string
	hasState bool

	nodesTotal int
	nodesIdle  int
	coresTotal int
	coresIdle  int

	maxCores int
	memoryMB int

	gpu    GPUResource
	hasGPU bool

	limit    time.Duration
	hasLimit bool
}

// Parse parses and aggregates a full status output. Any malformed cell aborts
// the whole parse; no partial partition map is ever returned.
func (p *Parser) Parse(text string) (map[string]PartitionStatus, error) {
	var rows []row
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parsed, err := p.parseRow(line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, parsed)
	}
	return p.aggregate(rows), nil
}

func (p *Parser) parseRow(line string) (row, error) {
	fields := strings.Fields(line)
	if len(fields) != len(p.columns) {
		return row{}, &internal.ParseError{
			Field:  "row",
			Value:  line,
			Reason: fmt.Sprintf("expected %d columns, got %d", len(p.columns), len(fields)),
		}
	}

	var r row
	for i, column := range p.columns {
		cell := fields[i]
		switch column {
		case ColumnPartition:
			// The default partition is marked with a trailing star.
			r.partition = strings.TrimSuffix(cell, "*")
		case ColumnCluster:
			r.cluster = cell
		case ColumnState:
			r.state = cell
			r.hasState = true
		case ColumnMaxCPUsPerNode:
			value, err := parseCount(cell)
			if err != nil {
				return row{}, cellError(r.partition, column, cell, err)
			}
			r.maxCores = value
		case ColumnMemory:
			value, err := parseCount(cell)
			if err != nil {
				return row{}, cellError(r.partition, column, cell, err)
			}
			r.memoryMB = value
		case ColumnGres, ColumnGresUsed:
			gpu, err := ParseGPUGres(cell)
			if err == nil {
				r.gpu = gpu
				r.hasGPU = true
			}
		case ColumnTimeLimit:
			limit, err := ParseTimeLimit(cell)
			if err != nil {
				return row{}, cellError(r.partition, column, cell, err)
			}
			r.limit = limit
			r.hasLimit = true
		case ColumnNodes, ColumnCPUs:
			// handled below, after the state cell is known
		}
	}

	// Node and CPU cells come in two shapes: an allocated/idle/other/total
	// quad, or a plain count on per-state layouts. A plain node count is
	// idle only when the row's state says so.
	if i, ok := p.indexes[ColumnNodes]; ok {
		cell := fields[i]
		if strings.Contains(cell, "/") {
			quad, err := parseQuad(cell)
			if err != nil {
				return row{}, cellError(r.partition, ColumnNodes, cell, err)
			}
			r.nodesTotal = quad.total
			r.nodesIdle = quad.idle
		} else {
			value, err := parseCount(cell)
			if err != nil {
				return row{}, cellError(r.partition, ColumnNodes, cell, err)
			}
			r.nodesTotal = value
			if r.hasState && strings.HasPrefix(r.state, "idle") {
				r.nodesIdle = value
			}
		}
	}
	if i, ok := p.indexes[ColumnCPUs]; ok {
		cell := fields[i]
		quad, err := parseQuad(cell)
		if err != nil {
			return row{}, cellError(r.partition, ColumnCPUs, cell, err)
		}
		r.coresTotal = quad.total
		r.coresIdle = quad.idle
	}

	return r, nil
}

func cellError(partition string, column Column, cell string, err error) error {
	reason := err.Error()
	var parseErr *internal.ParseError
	if errors.As(err, &parseErr) {
		reason = parseErr.Reason
	}
	return &internal.ParseError{
		Field:  string(column),
		Value:  cell,
		Reason: fmt.Sprintf("partition %q: %s", partition, reason),
	}
}

// usableState reports whether nodes in the given state can host a job. The
// scheduler suffixes states with flag characters, so only the prefix counts.
func usableState(state string) bool {
	return strings.HasPrefix(state, "idle") ||
		strings.HasPrefix(state, "mix") ||
		strings.HasPrefix(state, "alloc")
}

func (p *Parser) aggregate(rows []row) map[string]PartitionStatus {
	out := make(map[string]PartitionStatus)
	for _, r := range rows {
		if r.hasState && !usableState(r.state) {
			continue
		}
		key := JoinKey(r.cluster, r.partition)
		status := out[key]

		status.NodesTotal += r.nodesTotal
		status.NodesIdle += r.nodesIdle
		status.CoresTotal += r.coresTotal
		status.CoresIdle += r.coresIdle

		if r.maxCores > status.MaxCoresPerNode {
			status.MaxCoresPerNode = r.maxCores
		}
		if r.memoryMB > status.MaxMemoryMB {
			status.MaxMemoryMB = r.memoryMB
		}

		if r.hasGPU {
			switch status.GPUTemplate {
			case "":
				status.GPUTemplate = r.gpu.Template
			case r.gpu.Template:
			default:
				p.logger.Warn("conflicting gpu templates for partition, keeping the first",
					zap.String("partition", key),
					zap.String("kept", status.GPUTemplate),
					zap.String("ignored", r.gpu.Template))
			}
			status.MaxGPUs += r.gpu.Count
		}

		if r.hasLimit {
			limitSeconds := durationSeconds(r.limit)
			if status.MaxRuntimeSeconds == 0 {
				status.MaxRuntimeSeconds = limitSeconds
			} else if status.MaxRuntimeSeconds != limitSeconds {
				p.logger.Warn("conflicting time limits for partition, keeping the first",
					zap.String("partition", key),
					zap.Int("kept", status.MaxRuntimeSeconds),
					zap.Int("ignored", limitSeconds))
			}
		}

		out[key] = status
	}

	for key, status := range out {
		if status.GPUTemplate == "" {
			status.MaxGPUs = 0
			out[key] = status
		}
	}
	return out
}

func durationSeconds(d time.Duration) int {
	return int(d / time.Second)
}

// quad is the scheduler's allocated/idle/other/total tally.
type quad struct {
	allocated int
	idle      int
	other     int
	total     int
}

func parseQuad(cell string) (quad, error) {
	parts := strings.Split(cell, "/")
	if len(parts) != 4 {
		return quad{}, fmt.Errorf("expected allocated/idle/other/total, got %q", cell)
	}
	var q quad
	targets := []*int{&q.allocated, &q.idle, &q.other, &q.total}
	for i, part := range parts {
		value, err := parseCount(part)
		if err != nil {
			return quad{}, err
		}
		*targets[i] = value
	}
	return q, nil
}

// parseCount parses a non-negative integer cell. A trailing plus sign marks a
// lower bound on heterogeneous partitions and is discarded.
func parseCount(cell string) (int, error) {
	trimmed := strings.TrimSuffix(cell, "+")
	value, err := strconv.Atoi(trimmed)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("expected a non-negative integer, got %q", cell)
	}
	return value, nil
}
