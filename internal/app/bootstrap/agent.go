package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/sms-router/internal/agent"
	appconfig "github.com/wolfman30/sms-router/internal/config"
	"github.com/wolfman30/sms-router/pkg/logging"
)

// LoadAWSConfig builds the SDK config, using static credentials only when
// both halves are configured.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, loaders...)
}

// BuildAgentClient selects the agent backend named by AGENT_PROVIDER.
func BuildAgentClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (agent.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	switch cfg.AgentProvider {
	case appconfig.AgentProviderHTTP:
		if strings.TrimSpace(cfg.AgentURL) == "" {
			return nil, fmt.Errorf("bootstrap: AGENT_URL is required for the http agent")
		}
		logger.Info("agent provider: http", "url", cfg.AgentURL)
		// The service applies AGENT_TIMEOUT through the request context.
		return agent.NewHTTPClient(cfg.AgentURL, cfg.AgentAPIKey, &http.Client{}), nil

	case appconfig.AgentProviderBedrock:
		model := strings.TrimSpace(cfg.BedrockModelID)
		if model == "" {
			return nil, fmt.Errorf("bootstrap: BEDROCK_MODEL_ID is required for the bedrock agent")
		}
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		var optFns []func(*bedrockruntime.Options)
		if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
			optFns = append(optFns, func(o *bedrockruntime.Options) {
				o.BaseEndpoint = aws.String(endpoint)
			})
		}
		logger.Info("agent provider: bedrock", "model", model, "region", cfg.AWSRegion)
		return agent.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg, optFns...), model, ""), nil

	case appconfig.AgentProviderEcho, "":
		logger.Warn("agent provider: echo; replies repeat the message")
		return agent.EchoClient{}, nil

	default:
		return nil, fmt.Errorf("bootstrap: unknown agent provider %q", cfg.AgentProvider)
	}
}
