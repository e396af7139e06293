package template

import (
	"context"
	"errors"

	domain "github.com/zacharykka/blog-assistant/internal/domain"
)

// Service 提供提示词模板的查询与渲染。
type Service struct {
	repos *domain.Repositories
}

// NewService 创建模板服务实例。
func NewService(repos *domain.Repositories) *Service {
	return &Service{repos: repos}
}

// Rendered 为渲染结果；Template 为 nil 表示使用了兜底提示词。
type Rendered struct {
	Template *domain.PromptTemplate
	Prompt   string
}

// TemplateName 返回所用模板名称，兜底时为空。
func (r *Rendered) TemplateName() string {
	if r == nil || r.Template == nil {
		return ""
	}
	return r.Template.Name
}

// Get 按 ID 获取模板。
func (s *Service) Get(ctx context.Context, templateID string) (*domain.PromptTemplate, error) {
	tpl, err := s.repos.Templates.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return tpl, nil
}

// List 返回模板列表。
func (s *Service) List(ctx context.Context, activeOnly bool) ([]*domain.PromptTemplate, error) {
	return s.repos.Templates.List(ctx, activeOnly)
}

// RenderByName 渲染指定名称的启用模板，成功后累加使用次数。
func (s *Service) RenderByName(ctx context.Context, name string, vars map[string]string) (*Rendered, error) {
	tpl, err := s.repos.Templates.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if !tpl.IsActive {
		return nil, ErrTemplateNotFound
	}
	return s.render(ctx, tpl, vars)
}

// RenderByType 渲染该类型下的首个启用模板；没有模板时返回兜底提示词。
func (s *Service) RenderByType(ctx context.Context, templateType domain.TemplateType, vars map[string]string) (*Rendered, error) {
	tpl, err := s.repos.Templates.GetActiveByType(ctx, templateType)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &Rendered{Prompt: FallbackPrompt(vars)}, nil
		}
		return nil, err
	}
	return s.render(ctx, tpl, vars)
}

func (s *Service) render(ctx context.Context, tpl *domain.PromptTemplate, vars map[string]string) (*Rendered, error) {
	prompt, err := Render(tpl, vars)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Templates.IncrementUsage(ctx, tpl.ID); err != nil {
		return nil, err
	}
	tpl.UsageCount++
	return &Rendered{Template: tpl, Prompt: prompt}, nil
}
