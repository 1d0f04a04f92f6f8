package application

import (
	"context"
	"encoding/json"

	"github.com/turtacn/astragrid/internal/application/dto"
	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/pkg/constants"
	"github.com/turtacn/astragrid/pkg/errors"
	"github.com/turtacn/astragrid/pkg/logger"
)

const (
	statusOK       = "ok"
	statusExecuted = "executed"
	statusError    = "error"
)

// agentRoles maps each pipeline agent to the stage it performs.
var agentRoles = []struct {
	name  string
	role  string
	stage models.Stage
}{
	{"Infrastructure Scout", "extraction", models.StageExtracting},
	{"Network Analyst", "risk assessment", models.StageAssessing},
	{"Compliance Auditor", "compliance audit", models.StageAuditing},
	{"Web Orchestrator", "twin sync", models.StageSyncing},
}

// Agents reports each pipeline agent as busy while it has component calls in flight.
func (o *Orchestrator) Agents() []dto.AgentStatus {
	out := make([]dto.AgentStatus, 0, len(agentRoles))
	for _, a := range agentRoles {
		n := o.InFlight(a.stage)
		status := "idle"
		if n > 0 {
			status = "busy"
		}
		out = append(out, dto.AgentStatus{Name: a.name, Role: a.role, Status: status, InFlight: n})
	}
	return out
}

// commandArgs is the payload form of command arguments.
type commandArgs struct {
	Sector       string   `json:"sector"`
	ScanID       string   `json:"scan_id"`
	Priority     string   `json:"priority"`
	ComponentIDs []string `json:"component_ids"`
}

// HandleCommand serves one command from the control channel. Errors are reported
// inside the response, never returned.
func (o *Orchestrator) HandleCommand(ctx context.Context, cmd dto.Command) *dto.CommandResponse {
	o.deps.Metrics.RecordCommand(cmd.Type)
	resp := &dto.CommandResponse{Type: cmd.Type, RequestID: cmd.RequestID}

	kind := constants.CommandType(cmd.Type)
	args, err := mergeArgs(cmd)
	if err != nil && (kind == constants.CommandStatus || kind == constants.CommandExecute || kind == constants.CommandCancel) {
		return failed(resp, err)
	}

	switch kind {
	case constants.CommandStatus:
		if args.ScanID != "" {
			wf, err := o.Status(ctx, args.ScanID)
			if err != nil {
				return failed(resp, err)
			}
			resp.Status, resp.Result = statusOK, wf
			return resp
		}
		resp.Status = statusOK
		resp.Result = dto.StatusResult{Agents: o.Agents(), Workflows: o.List(ctx)}
		return resp

	case constants.CommandExecute:
		wf, err := o.Execute(ctx, args.Sector, args.ComponentIDs, models.ParsePriority(args.Priority))
		if err != nil {
			return failed(resp, err)
		}
		resp.Status, resp.Result = statusOK, dto.NewExecuteResult(wf)
		return resp

	case constants.CommandCancel:
		if args.ScanID == "" {
			return failed(resp, errors.ErrMalformedInput("cancel requires scan_id"))
		}
		wf, err := o.Cancel(ctx, args.ScanID)
		if err != nil {
			return failed(resp, err)
		}
		resp.Status, resp.Result = statusOK, wf
		return resp

	default:
		o.logger.Debug(ctx, "acknowledging passthrough command", logger.String("type", cmd.Type))
		resp.Status, resp.Result = statusExecuted, map[string]interface{}{}
		return resp
	}
}

// mergeArgs fills command arguments missing at the top level from the payload.
func mergeArgs(cmd dto.Command) (commandArgs, error) {
	args := commandArgs{
		Sector:       cmd.Sector,
		ScanID:       cmd.ScanID,
		Priority:     cmd.Priority,
		ComponentIDs: cmd.ComponentIDs,
	}
	if len(cmd.Payload) == 0 {
		return args, nil
	}
	var p commandArgs
	if err := json.Unmarshal(cmd.Payload, &p); err != nil {
		return args, errors.ErrMalformedInput("command payload is not a JSON object").WithCause(err)
	}
	if args.Sector == "" {
		args.Sector = p.Sector
	}
	if args.ScanID == "" {
		args.ScanID = p.ScanID
	}
	if args.Priority == "" {
		args.Priority = p.Priority
	}
	if len(args.ComponentIDs) == 0 {
		args.ComponentIDs = p.ComponentIDs
	}
	return args, nil
}

func failed(resp *dto.CommandResponse, err error) *dto.CommandResponse {
	resp.Status = statusError
	resp.Result = map[string]interface{}{}
	resp.Error = dto.ErrorResponse(err, "").Error
	return resp
}
