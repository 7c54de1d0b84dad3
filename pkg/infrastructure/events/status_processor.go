package events

import (
	"context"
	"fmt"

	"github.com/vsinha/requisition/pkg/domain/entities"
	"github.com/vsinha/requisition/pkg/infrastructure/logging"
)

// ApprovalNotifier tells the next approvers that a requisition awaits them
type ApprovalNotifier interface {
	NotifyApprovers(change RequisitionStatusChanged) error
}

// ConvertToOrderNotifier tells the supplying depot that a requisition was released
type ConvertToOrderNotifier interface {
	NotifyConvertToOrder(change RequisitionStatusChanged) error
}

// StatusNotifier tells the requisition's creator about a status change
type StatusNotifier interface {
	NotifyStatusChanged(change RequisitionStatusChanged) error
}

// StatusProcessor routes status change events to notifiers
type StatusProcessor struct {
	approvals      ApprovalNotifier
	convertToOrder ConvertToOrderNotifier
	status         StatusNotifier
	logger         logging.Logger
}

var _ Handler = (*StatusProcessor)(nil)

// NewStatusProcessor wires the notifiers; any of them may be nil
func NewStatusProcessor(approvals ApprovalNotifier, convertToOrder ConvertToOrderNotifier, status StatusNotifier, logger logging.Logger) *StatusProcessor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StatusProcessor{
		approvals:      approvals,
		convertToOrder: convertToOrder,
		status:         status,
		logger:         logger.With(logging.String("component", "status-processor")),
	}
}

func (p *StatusProcessor) Handles(eventType string) bool {
	return eventType == RequisitionStatusChangedEvent
}

func (p *StatusProcessor) Handle(_ context.Context, event Event) error {
	change, ok := event.Payload.(RequisitionStatusChanged)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}

	p.logger.Debug("processing status change",
		logging.ID("requisition_id", change.RequisitionID),
		logging.Stringer("status", change.Status))

	switch change.Status {
	case entities.StatusAuthorized, entities.StatusInApproval:
		if p.approvals != nil {
			if err := p.approvals.NotifyApprovers(change); err != nil {
				return fmt.Errorf("failed to notify approvers: %w", err)
			}
		}
	case entities.StatusReleased:
		if p.convertToOrder != nil {
			if err := p.convertToOrder.NotifyConvertToOrder(change); err != nil {
				return fmt.Errorf("failed to notify convert to order: %w", err)
			}
		}
	}

	if p.status != nil && change.Status != entities.StatusInitiated {
		if err := p.status.NotifyStatusChanged(change); err != nil {
			return fmt.Errorf("failed to notify status change: %w", err)
		}
	}
	return nil
}

// LoggingNotifier implements every notifier by writing a log entry
type LoggingNotifier struct {
	logger logging.Logger
}

var (
	_ ApprovalNotifier       = (*LoggingNotifier)(nil)
	_ ConvertToOrderNotifier = (*LoggingNotifier)(nil)
	_ StatusNotifier         = (*LoggingNotifier)(nil)
)

func NewLoggingNotifier(logger logging.Logger) *LoggingNotifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LoggingNotifier{logger: logger}
}

func (n *LoggingNotifier) NotifyApprovers(change RequisitionStatusChanged) error {
	fields := []logging.Field{
		logging.ID("requisition_id", change.RequisitionID),
		logging.Stringer("status", change.Status),
	}
	if change.SupervisoryNodeID != nil {
		fields = append(fields, logging.ID("supervisory_node_id", *change.SupervisoryNodeID))
	}
	n.logger.Info("requisition awaiting approval", fields...)
	return nil
}

func (n *LoggingNotifier) NotifyConvertToOrder(change RequisitionStatusChanged) error {
	n.logger.Info("requisition released for conversion to order",
		logging.ID("requisition_id", change.RequisitionID),
		logging.ID("facility_id", change.FacilityID))
	return nil
}

func (n *LoggingNotifier) NotifyStatusChanged(change RequisitionStatusChanged) error {
	n.logger.Info("requisition status changed",
		logging.ID("requisition_id", change.RequisitionID),
		logging.Stringer("from", change.PreviousStatus),
		logging.Stringer("to", change.Status),
		logging.ID("author_id", change.AuthorID))
	return nil
}
