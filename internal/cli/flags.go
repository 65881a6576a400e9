package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/alphasentinel/internal/model"
)

// runFlags are the overrides shared by analyze, batch and index
type runFlags struct {
	filing            string
	llmProvider       string
	llmModel          string
	embeddingProvider string
	embeddingModel    string
	topK              int
	hybrid            bool
	jsonMode          bool
	workers           int
	noCache           bool
	noFooter          bool
	includeRaw        bool
	userAgent         string
	httpProxy         string
	httpsProxy        string
}

func (f *runFlags) register(cmd *cobra.Command, withGeneration bool) {
	flags := cmd.Flags()
	flags.StringVar(&f.filing, "filing", "", "reference filing: text, form-feed paginated text, HTML file, or URL")
	flags.StringVar(&f.embeddingProvider, "embedding-provider", "openai", "embedding provider (openai, gemini, ollama)")
	flags.StringVar(&f.embeddingModel, "embedding-model", "", "embedding model name")
	flags.BoolVar(&f.hybrid, "hybrid", false, "fuse BM25 keyword ranking with vector ranking")
	flags.BoolVar(&f.noCache, "no-cache", false, "disable the embedding cache")
	flags.StringVar(&f.userAgent, "ua", "", "HTTP User-Agent for URL filings")
	flags.StringVar(&f.httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	flags.StringVar(&f.httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	_ = cmd.MarkFlagRequired("filing")

	if !withGeneration {
		return
	}
	flags.StringVar(&f.llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, gemini, ollama)")
	flags.StringVar(&f.llmModel, "llm-model", "", "LLM model name")
	flags.IntVar(&f.topK, "top-k", 2, "passages retrieved per claim")
	flags.BoolVar(&f.jsonMode, "json-mode", false, "ask the model for JSON output where supported")
	flags.IntVar(&f.workers, "workers", 1, "claims adjudicated in parallel")
	flags.BoolVar(&f.noFooter, "no-footer", false, "disable footer in Markdown reports")
	flags.BoolVar(&f.includeRaw, "include-raw", false, "keep raw model responses in JSON reports")
}

// apply overrides cfg with the flags the user set explicitly
func (f *runFlags) apply(cmd *cobra.Command, cfg *model.Config) {
	changed := cmd.Flags().Changed

	if changed("llm-provider") {
		cfg.LLM.Provider = f.llmProvider
		// A provider switch without a model uses the provider's default
		if !changed("llm-model") {
			cfg.LLM.Model = ""
		}
	}
	if changed("llm-model") {
		cfg.LLM.Model = f.llmModel
	}
	if changed("embedding-provider") {
		cfg.Embedding.Provider = f.embeddingProvider
		if !changed("embedding-model") {
			cfg.Embedding.Model = ""
		}
	}
	if changed("embedding-model") {
		cfg.Embedding.Model = f.embeddingModel
	}
	if changed("top-k") {
		cfg.Retrieval.TopK = f.topK
	}
	if changed("hybrid") {
		cfg.Retrieval.Hybrid = f.hybrid
	}
	if changed("json-mode") {
		cfg.LLM.JSONMode = f.jsonMode
	}
	if changed("workers") {
		cfg.Adjudication.Workers = f.workers
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
	if f.noFooter {
		cfg.Output.IncludeFooter = false
	}
	if f.includeRaw {
		cfg.Output.IncludeRawText = true
	}
	if f.userAgent != "" {
		cfg.HTTP.UserAgent = f.userAgent
	}
	if f.httpProxy != "" {
		cfg.HTTP.HTTPProxy = f.httpProxy
	}
	if f.httpsProxy != "" {
		cfg.HTTP.HTTPSProxy = f.httpsProxy
	}
	cfg.Output.Verbose = verbose
}

// configFromFlags loads the layered config and applies cmd's flags
func configFromFlags(cmd *cobra.Command, f *runFlags) (*model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	f.apply(cmd, cfg)
	return cfg, nil
}
