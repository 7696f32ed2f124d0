package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finbook-oss/finbook_backend/internal/apperrors"
	"github.com/finbook-oss/finbook_backend/internal/core/domain"
	portsrepo "github.com/finbook-oss/finbook_backend/internal/core/ports/repositories"
	portssvc "github.com/finbook-oss/finbook_backend/internal/core/ports/services"
	"github.com/finbook-oss/finbook_backend/internal/core/ruleengine"
	"github.com/finbook-oss/finbook_backend/internal/dto"
	"github.com/finbook-oss/finbook_backend/internal/middleware"
)

var (
	ErrDuplicateOrchid = errors.New("template orchid already exists")

	// ErrUnknownPlaceholder indicates a narration template references a field
	// that is not declared in the input schema. Caught at definition time so
	// no dispatch can ever hit an unresolved placeholder.
	ErrUnknownPlaceholder = errors.New("narration placeholder not declared in required fields")

	// ErrUnknownSourceField indicates a line rule's formula reads a field not
	// declared in the input schema.
	ErrUnknownSourceField = errors.New("formula source field not declared in required fields")
)

// templateService manages event template definitions.
type templateService struct {
	templateRepo portsrepo.TemplateRepositoryFacade
	accountRepo  portsrepo.AccountRepositoryFacade
}

// NewTemplateService creates a new template service.
func NewTemplateService(templateRepo portsrepo.TemplateRepositoryFacade, accountRepo portsrepo.AccountRepositoryFacade) portssvc.TemplateSvcFacade {
	return &templateService{
		templateRepo: templateRepo,
		accountRepo:  accountRepo,
	}
}

var _ portssvc.TemplateSvcFacade = (*templateService)(nil)

// buildTemplate materializes and fully validates a template definition.
func (s *templateService) buildTemplate(ctx context.Context, orgID string, req dto.SaveTemplateRequest, userID string) (*domain.EventTemplate, error) {
	required := make(map[string]struct{}, len(req.RequiredFields))
	for _, field := range req.RequiredFields {
		if field == "" {
			return nil, fmt.Errorf("%w: required field names must not be empty", apperrors.ErrValidation)
		}
		required[field] = struct{}{}
	}

	switch req.ReferenceConfig.SerialMethod {
	case domain.SerialIncrementor, domain.SerialRandomHex:
	default:
		return nil, fmt.Errorf("%w: unknown serial method '%s'", apperrors.ErrValidation, req.ReferenceConfig.SerialMethod)
	}

	// Placeholder closure: every %field% token anywhere in the template must
	// name a declared required field.
	checkPlaceholders := func(tmpl string) error {
		var unknown []string
		for _, field := range ruleengine.Placeholders(tmpl) {
			if _, ok := required[field]; !ok {
				unknown = append(unknown, field)
			}
		}
		if len(unknown) > 0 {
			return fmt.Errorf("%w: %s", ErrUnknownPlaceholder, strings.Join(unknown, ", "))
		}
		return nil
	}
	if err := checkPlaceholders(req.NarrationTemplate); err != nil {
		return nil, err
	}

	rules := make([]domain.LineRule, len(req.LineRules))
	accountIDs := make([]string, 0, len(req.LineRules))
	for i, rr := range req.LineRules {
		if rr.Direction != domain.DirectionDebit && rr.Direction != domain.DirectionCredit {
			return nil, fmt.Errorf("%w: line rule %d: unknown direction '%s'", apperrors.ErrValidation, i, rr.Direction)
		}
		if !domain.ValidOperator(rr.Operator) {
			return nil, fmt.Errorf("%w: line rule %d: unknown operator '%s'", apperrors.ErrValidation, i, rr.Operator)
		}
		if rr.Operator != domain.OperatorDirect && rr.Operand == nil {
			return nil, fmt.Errorf("%w: line rule %d: operator '%s' requires an operand", apperrors.ErrValidation, i, rr.Operator)
		}
		if _, ok := required[rr.SourceField]; !ok {
			return nil, fmt.Errorf("%w: line rule %d: '%s'", ErrUnknownSourceField, i, rr.SourceField)
		}
		if err := checkPlaceholders(rr.Narration); err != nil {
			return nil, fmt.Errorf("line rule %d: %w", i, err)
		}
		rules[i] = domain.LineRule{
			AccountID: rr.AccountID,
			Direction: rr.Direction,
			Formula: domain.AmountFormula{
				SourceField: rr.SourceField,
				Operator:    rr.Operator,
				Operand:     rr.Operand,
			},
			Narration: rr.Narration,
		}
		accountIDs = append(accountIDs, rr.AccountID)
	}

	// Every rule must target an existing account in this organization.
	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rule accounts: %w", err)
	}
	for _, id := range accountIDs {
		acc, ok := accounts[id]
		if !ok || acc.OrganizationID != orgID {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
		}
	}

	now := time.Now().UTC()
	return &domain.EventTemplate{
		TemplateID:     uuid.NewString(),
		OrganizationID: orgID,
		Orchid:         req.Orchid,
		Name:           req.Name,
		ReferenceConfig: domain.ReferenceConfig{
			Prefix:       req.ReferenceConfig.Prefix,
			SerialMethod: req.ReferenceConfig.SerialMethod,
			Length:       req.ReferenceConfig.Length,
		},
		NarrationTemplate: req.NarrationTemplate,
		InputSchema:       domain.InputSchema{Required: req.RequiredFields},
		LineRules:         rules,
		IsActive:          true,
		Version:           1,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}, nil
}

// CreateTemplate registers a new template after full validation.
func (s *templateService) CreateTemplate(ctx context.Context, orgID string, req dto.SaveTemplateRequest, userID string) (*domain.EventTemplate, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	existing, err := s.templateRepo.FindTemplateByOrchid(ctx, orgID, req.Orchid)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check orchid uniqueness: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: '%s'", ErrDuplicateOrchid, req.Orchid)
	}

	tpl, err := s.buildTemplate(ctx, orgID, req, userID)
	if err != nil {
		return nil, err
	}

	if err := s.templateRepo.SaveTemplate(ctx, *tpl); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: '%s'", ErrDuplicateOrchid, req.Orchid)
		}
		logger.Error("Failed to save template", slog.String("error", err.Error()), slog.String("orchid", req.Orchid))
		return nil, fmt.Errorf("failed to save template: %w", err)
	}

	logger.Info("Template created", slog.String("orchid", tpl.Orchid), slog.String("template_id", tpl.TemplateID))
	return tpl, nil
}

// ReplaceTemplate swaps the complete definition of an existing template,
// bumping its version. This is the only way a template changes while in use.
func (s *templateService) ReplaceTemplate(ctx context.Context, orgID string, orchid string, req dto.SaveTemplateRequest, userID string) (*domain.EventTemplate, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	current, err := s.templateRepo.FindTemplateByOrchid(ctx, orgID, orchid)
	if err != nil {
		return nil, err
	}
	if req.Orchid != orchid {
		return nil, fmt.Errorf("%w: orchid cannot change on replacement", apperrors.ErrValidation)
	}

	tpl, err := s.buildTemplate(ctx, orgID, req, userID)
	if err != nil {
		return nil, err
	}
	tpl.TemplateID = current.TemplateID
	tpl.Version = current.Version + 1
	tpl.IsActive = current.IsActive
	tpl.CreatedAt = current.CreatedAt
	tpl.CreatedBy = current.CreatedBy

	if err := s.templateRepo.ReplaceTemplate(ctx, *tpl); err != nil {
		logger.Error("Failed to replace template", slog.String("error", err.Error()), slog.String("orchid", orchid))
		return nil, fmt.Errorf("failed to replace template: %w", err)
	}

	logger.Info("Template replaced", slog.String("orchid", orchid), slog.Int("version", tpl.Version))
	return tpl, nil
}

// GetTemplateByOrchid retrieves a template by its unique code.
func (s *templateService) GetTemplateByOrchid(ctx context.Context, orgID string, orchid string) (*domain.EventTemplate, error) {
	return s.templateRepo.FindTemplateByOrchid(ctx, orgID, orchid)
}

// ListTemplates retrieves all templates for an organization.
func (s *templateService) ListTemplates(ctx context.Context, orgID string) ([]domain.EventTemplate, error) {
	return s.templateRepo.ListTemplates(ctx, orgID)
}

// SetTemplateActive enables or disables a template.
func (s *templateService) SetTemplateActive(ctx context.Context, orgID string, orchid string, active bool, userID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.templateRepo.SetTemplateActive(ctx, orgID, orchid, active, userID); err != nil {
		logger.Error("Failed to set template active flag", slog.String("error", err.Error()), slog.String("orchid", orchid))
		return err
	}
	logger.Info("Template active flag set", slog.String("orchid", orchid), slog.Bool("active", active))
	return nil
}
