package gateway

import (
	"fmt"
	"net/http"
	"time"

	vo "waveshop/internal/domain/transaction/valueobjects"
	sharedConfig "waveshop/internal/shared/config"
	apperrors "waveshop/internal/shared/errors"
	"waveshop/internal/shared/logger"
)

// CredentialStore decrypts provider secrets stored in configuration.
type CredentialStore interface {
	Decrypt(ciphertext string) (string, error)
}

// Builder constructs a gateway variant from its configuration record.
type Builder func(cfg sharedConfig.GatewayConfig, deps *FactoryDeps) (PaymentGateway, error)

type FactoryDeps struct {
	Secrets    CredentialStore
	Bot        InvoiceCreator
	HTTPClient *http.Client
	ReturnURL  string
	Logger     logger.Interface
}

// Factory selects and constructs the right gateway variant from a
// configuration record. Adding a provider means registering one builder.
type Factory struct {
	configs  map[vo.GatewayType]sharedConfig.GatewayConfig
	builders map[vo.GatewayType]Builder
	deps     *FactoryDeps
}

func NewFactory(configs []sharedConfig.GatewayConfig, deps *FactoryDeps) (*Factory, error) {
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}

	byType := make(map[vo.GatewayType]sharedConfig.GatewayConfig, len(configs))
	for _, cfg := range configs {
		gt, err := vo.NewGatewayType(cfg.Type)
		if err != nil {
			return nil, apperrors.NewConfigurationError("unknown gateway type in config", cfg.Type)
		}
		if _, dup := byType[gt]; dup {
			return nil, apperrors.NewConfigurationError("duplicate gateway config", cfg.Type)
		}
		byType[gt] = cfg
	}

	f := &Factory{
		configs:  byType,
		builders: make(map[vo.GatewayType]Builder),
		deps:     deps,
	}

	f.Register(vo.GatewayYookassa, buildYookassa)
	f.Register(vo.GatewayTelegramStars, buildStars)
	f.Register(vo.GatewayCryptopay, buildCryptopay)

	return f, nil
}

// Register installs a builder for a gateway type.
func (f *Factory) Register(gt vo.GatewayType, builder Builder) {
	f.builders[gt] = builder
}

// Gateway validates the configuration record and constructs the variant.
func (f *Factory) Gateway(gt vo.GatewayType) (PaymentGateway, error) {
	cfg, ok := f.configs[gt]
	if !ok {
		return nil, apperrors.NewConfigurationError("gateway not configured", gt.String())
	}
	if !cfg.Enabled {
		return nil, apperrors.NewConfigurationError("payment gateway disabled", gt.String()).
			WithCause(apperrors.ErrGatewayDisabled)
	}

	builder, ok := f.builders[gt]
	if !ok {
		return nil, apperrors.NewConfigurationError("no builder registered for gateway", gt.String())
	}

	return builder(cfg, f.deps)
}

func buildYookassa(cfg sharedConfig.GatewayConfig, deps *FactoryDeps) (PaymentGateway, error) {
	secretKey, err := decrypt(deps, cfg.Credentials)
	if err != nil {
		return nil, apperrors.NewConfigurationError("failed to decrypt yookassa credentials", err.Error())
	}
	return NewYookassaGateway(YookassaConfig{
		ShopID:          cfg.ShopID,
		SecretKey:       secretKey,
		Currency:        cfg.Currency,
		ReturnURL:       deps.ReturnURL,
		TrustedNetworks: cfg.TrustedNetworks,
		APIBase:         cfg.APIBase,
	}, deps.HTTPClient, deps.Logger)
}

func buildStars(cfg sharedConfig.GatewayConfig, deps *FactoryDeps) (PaymentGateway, error) {
	return NewStarsGateway(StarsConfig{Currency: cfg.Currency}, deps.Bot, deps.Logger)
}

func buildCryptopay(cfg sharedConfig.GatewayConfig, deps *FactoryDeps) (PaymentGateway, error) {
	apiToken, err := decrypt(deps, cfg.Credentials)
	if err != nil {
		return nil, apperrors.NewConfigurationError("failed to decrypt cryptopay credentials", err.Error())
	}
	return NewCryptopayGateway(CryptopayConfig{
		APIToken:      apiToken,
		Currency:      cfg.Currency,
		APIBase:       cfg.APIBase,
		WebhookSecret: cfg.WebhookSecret,
		AllowUnsigned: cfg.AllowUnsigned,
	}, deps.HTTPClient, deps.Logger)
}

func decrypt(deps *FactoryDeps, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", fmt.Errorf("credentials not set")
	}
	if deps.Secrets == nil {
		return "", fmt.Errorf("credential store not configured")
	}
	return deps.Secrets.Decrypt(ciphertext)
}
