package bootstrap

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/zacharykka/blog-assistant/internal/config"
	domain "github.com/zacharykka/blog-assistant/internal/domain"
	authutil "github.com/zacharykka/blog-assistant/pkg/auth"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog 为内置的模型与模板种子数据。
type Catalog struct {
	Models    []ModelSeed    `yaml:"models"`
	Templates []TemplateSeed `yaml:"templates"`
}

// ModelSeed 为种子目录中的一条模型定义。
type ModelSeed struct {
	Name         string  `yaml:"name"`
	Provider     string  `yaml:"provider"`
	ModelID      string  `yaml:"model_id"`
	ModelType    string  `yaml:"model_type"`
	Description  string  `yaml:"description"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	TopP         float64 `yaml:"top_p"`
	RateLimit    int     `yaml:"rate_limit"`
	RequiresAuth bool    `yaml:"requires_auth"`
	APIEndpoint  string  `yaml:"api_endpoint"`
}

// TemplateSeed 为种子目录中的一条模板定义。
type TemplateSeed struct {
	Name               string   `yaml:"name"`
	TemplateType       string   `yaml:"template_type"`
	Description        string   `yaml:"description"`
	TemplateText       string   `yaml:"template_text"`
	RequiredVariables  []string `yaml:"required_variables"`
	OptionalVariables  []string `yaml:"optional_variables"`
	DefaultTemperature float64  `yaml:"default_temperature"`
	DefaultMaxTokens   int      `yaml:"default_max_tokens"`
}

// Summary 统计本次新建的记录数。
type Summary struct {
	ModelsCreated    int
	TemplatesCreated int
}

// ParseCatalog 解析并校验种子 YAML。
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	var errs error
	for i, m := range catalog.Models {
		if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.ModelID) == "" {
			errs = multierr.Append(errs, fmt.Errorf("models[%d]: name and model_id required", i))
		}
		if !domain.Provider(m.Provider).Valid() {
			errs = multierr.Append(errs, fmt.Errorf("models[%d]: unknown provider %q", i, m.Provider))
		}
		if !domain.ModelType(m.ModelType).Valid() {
			errs = multierr.Append(errs, fmt.Errorf("models[%d]: unknown model type %q", i, m.ModelType))
		}
	}
	for i, tpl := range catalog.Templates {
		if strings.TrimSpace(tpl.Name) == "" || strings.TrimSpace(tpl.TemplateText) == "" {
			errs = multierr.Append(errs, fmt.Errorf("templates[%d]: name and template_text required", i))
		}
		if !domain.TemplateType(tpl.TemplateType).Valid() {
			errs = multierr.Append(errs, fmt.Errorf("templates[%d]: unknown template type %q", i, tpl.TemplateType))
		}
	}
	if errs != nil {
		return nil, errs
	}
	return &catalog, nil
}

// Run 按配置执行全部种子步骤，单步失败不影响其余步骤，错误合并返回。
func Run(ctx context.Context, repos *domain.Repositories, cfg config.BootstrapConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Info("bootstrap skipped (disabled)")
		return nil
	}

	err := EnsureDefaultAdmin(ctx, repos, cfg.Admin, logger)

	catalog, parseErr := ParseCatalog(defaultCatalog)
	if parseErr != nil {
		return multierr.Append(err, parseErr)
	}
	summary, seedErr := SeedCatalog(ctx, repos, catalog, logger)
	logger.Info("bootstrap catalog seeded",
		zap.Int("models_created", summary.ModelsCreated),
		zap.Int("templates_created", summary.TemplatesCreated),
	)
	return multierr.Append(err, seedErr)
}

// EnsureDefaultAdmin 创建初始管理员账号（若不存在），邮箱或密码未配置时跳过。
func EnsureDefaultAdmin(ctx context.Context, repos *domain.Repositories, cfg config.AdminConfig, logger *zap.Logger) error {
	adminEmail := strings.TrimSpace(strings.ToLower(cfg.Email))
	if adminEmail == "" || cfg.Password == "" {
		logger.Info("bootstrap admin skipped (not configured)")
		return nil
	}

	if _, err := repos.Users.GetByEmail(ctx, adminEmail); err == nil {
		logger.Info("bootstrap admin exists", zap.String("email", adminEmail))
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	hash, err := authutil.HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	admin := &domain.User{
		ID:             uuid.NewString(),
		Email:          adminEmail,
		HashedPassword: hash,
		Role:           normalizedRole(cfg.Role),
		Status:         "active",
	}
	if err := repos.Users.Create(ctx, admin); err != nil {
		return err
	}

	logger.Info("bootstrap admin created", zap.String("email", adminEmail))
	return nil
}

// SeedCatalog 幂等写入模型（按 provider + model_id）与模板（按 name）。
func SeedCatalog(ctx context.Context, repos *domain.Repositories, catalog *Catalog, logger *zap.Logger) (Summary, error) {
	var (
		summary Summary
		errs    error
	)
	for _, seed := range catalog.Models {
		created, err := ensureModel(ctx, repos, seed)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("seed model %s: %w", seed.ModelID, err))
			continue
		}
		if created {
			summary.ModelsCreated++
			logger.Info("bootstrap ai model created", zap.String("name", seed.Name))
		}
	}
	for _, seed := range catalog.Templates {
		created, err := ensureTemplate(ctx, repos, seed)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("seed template %s: %w", seed.Name, err))
			continue
		}
		if created {
			summary.TemplatesCreated++
			logger.Info("bootstrap prompt template created", zap.String("name", seed.Name))
		}
	}
	return summary, errs
}

func ensureModel(ctx context.Context, repos *domain.Repositories, seed ModelSeed) (bool, error) {
	provider := domain.Provider(seed.Provider)
	if _, err := repos.AIModels.GetByProviderModel(ctx, provider, seed.ModelID); err == nil {
		return false, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	model := &domain.AIModel{
		ID:           uuid.NewString(),
		Name:         seed.Name,
		Provider:     provider,
		ModelID:      seed.ModelID,
		ModelType:    domain.ModelType(seed.ModelType),
		Description:  seed.Description,
		MaxTokens:    seed.MaxTokens,
		Temperature:  seed.Temperature,
		TopP:         seed.TopP,
		APIEndpoint:  seed.APIEndpoint,
		RequiresAuth: seed.RequiresAuth,
		RateLimit:    seed.RateLimit,
		IsActive:     true,
	}
	if err := repos.AIModels.Create(ctx, model); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func ensureTemplate(ctx context.Context, repos *domain.Repositories, seed TemplateSeed) (bool, error) {
	if _, err := repos.Templates.GetByName(ctx, seed.Name); err == nil {
		return false, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}

	tpl := &domain.PromptTemplate{
		ID:                 uuid.NewString(),
		Name:               seed.Name,
		Description:        seed.Description,
		TemplateType:       domain.TemplateType(seed.TemplateType),
		Body:               seed.TemplateText,
		RequiredVariables:  seed.RequiredVariables,
		OptionalVariables:  seed.OptionalVariables,
		DefaultTemperature: seed.DefaultTemperature,
		DefaultMaxTokens:   seed.DefaultMaxTokens,
		IsActive:           true,
	}
	if err := repos.Templates.Create(ctx, tpl); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func normalizedRole(role string) string {
	value := strings.TrimSpace(strings.ToLower(role))
	switch value {
	case "admin", "editor", "viewer":
		return value
	default:
		return "admin"
	}
}
