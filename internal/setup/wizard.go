// Package setup runs the first-run configuration dialog on the terminal.
package setup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"google.golang.org/genai"

	"vpnarch/internal/config"
	"vpnarch/internal/security"
)

// ANSI color codes for enhanced output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

const welcomeMessage = `
%s╔═══════════════════════════════════════════════════╗
║                                                   ║
║             %s欢迎使用 VPN 架构师%s                   ║
║      AI 生成的 VPN 服务器与客户端搭建指南         ║
║                                                   ║
╚═══════════════════════════════════════════════════╝%s

选择用于生成指南的 AI 后端。
`

const providerChoiceMessage = `
%s选择 AI 后端:%s

  %s[1]%s Gemini (API 密钥)  • Google Gemini 模型，提供免费额度
                          • 获取密钥: https://aistudio.google.com/apikey

  %s[2]%s Ollama (本地)      • 在本机运行模型，无需 API 密钥
                          • 需要: ollama serve

%s请输入选项 (1-2):%s `

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// KeyValidator checks a Gemini API key with a real request.
type KeyValidator func(ctx context.Context, apiKey string) error

// ModelLister lists the models installed on an Ollama server.
type ModelLister func(ctx context.Context, serverURL string) ([]string, error)

// Wizard asks the user for a backend and writes the config file.
type Wizard struct {
	in         *bufio.Reader
	out        io.Writer
	configPath string
	validate   KeyValidator
	listModels ModelLister
}

// NewWizard creates a wizard reading answers from in and saving to configPath.
func NewWizard(in io.Reader, out io.Writer, configPath string) *Wizard {
	return &Wizard{
		in:         bufio.NewReader(in),
		out:        out,
		configPath: configPath,
		validate:   ValidateGeminiKey,
		listModels: ListOllamaModels,
	}
}

// WithValidator replaces the key check, mainly for tests.
func (w *Wizard) WithValidator(v KeyValidator) *Wizard {
	w.validate = v
	return w
}

// WithModelLister replaces the Ollama model listing, mainly for tests.
func (w *Wizard) WithModelLister(l ModelLister) *Wizard {
	w.listModels = l
	return w
}

// Run runs the dialog and returns the saved configuration.
func (w *Wizard) Run(ctx context.Context) (*config.Config, error) {
	fmt.Fprintf(w.out, welcomeMessage, colorCyan, colorBold, colorCyan, colorReset)

	if key := security.GetGeminiKey(""); key.IsSet() {
		fmt.Fprintf(w.out, "\n%s✓ 在环境变量 %s 中找到 API 密钥。%s\n", colorGreen, key.EnvVar, colorReset)
		fmt.Fprintf(w.out, "%s是否使用它? [Y/n]:%s ", colorCyan, colorReset)

		answer, err := w.readLine()
		if err != nil {
			return nil, err
		}
		answer = strings.ToLower(answer)
		if answer == "" || answer == "y" || answer == "yes" {
			if err := w.validateWithSpinner(ctx, key.Value); err != nil {
				fmt.Fprintf(w.out, "\n%s⚠ 密钥校验失败: %s%s\n", colorRed, err, colorReset)
				fmt.Fprintf(w.out, "%s继续手动配置...%s\n", colorYellow, colorReset)
			} else {
				// The key stays in the environment; only the provider is saved.
				cfg := config.DefaultConfig()
				return w.save(cfg, "Gemini ("+key.EnvVar+")")
			}
		}
	}

	for {
		fmt.Fprintf(w.out, providerChoiceMessage, colorYellow, colorReset, colorGreen, colorReset, colorGreen, colorReset, colorCyan, colorReset)

		choice, err := w.readLine()
		if err != nil {
			return nil, err
		}

		switch choice {
		case "1":
			return w.setupGemini(ctx)
		case "2":
			return w.setupOllama(ctx)
		default:
			fmt.Fprintf(w.out, "\n%s⚠ 无效选项，请输入 1 或 2。%s\n", colorRed, colorReset)
		}
	}
}

func (w *Wizard) setupGemini(ctx context.Context) (*config.Config, error) {
	fmt.Fprintf(w.out, "\n%s─── Gemini API 密钥 ───%s\n", colorCyan, colorReset)
	fmt.Fprintf(w.out, "\n%s获取密钥:%s\n  %shttps://aistudio.google.com/apikey%s\n\n", colorYellow, colorReset, colorBold, colorReset)
	fmt.Fprintf(w.out, "%s请输入 API 密钥:%s ", colorGreen, colorReset)

	apiKey, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if err := security.ValidateKeyFormat(apiKey); err != nil {
		return nil, fmt.Errorf("invalid API key: %w", err)
	}
	if err := w.validateWithSpinner(ctx, apiKey); err != nil {
		return nil, fmt.Errorf("API key validation failed: %w", err)
	}

	cfg := config.DefaultConfig()
	cfg.API.APIKey = apiKey
	return w.save(cfg, "Gemini")
}

func (w *Wizard) setupOllama(ctx context.Context) (*config.Config, error) {
	fmt.Fprintf(w.out, "\n%s─── Ollama 本地配置 ───%s\n", colorCyan, colorReset)
	fmt.Fprintf(w.out, "\n%s准备工作:%s\n", colorYellow, colorReset)
	fmt.Fprintf(w.out, "  1. 安装 Ollama: %scurl -fsSL https://ollama.com/install.sh | sh%s\n", colorBold, colorReset)
	fmt.Fprintf(w.out, "  2. 启动服务:    %sollama serve%s\n", colorBold, colorReset)
	fmt.Fprintf(w.out, "  3. 拉取模型:    %sollama pull %s%s\n\n", colorBold, config.DefaultOllamaModel, colorReset)

	fmt.Fprintf(w.out, "%sOllama 服务地址 (回车使用 %s):%s ", colorGreen, config.DefaultOllamaBaseURL, colorReset)
	serverURL, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if serverURL == "" {
		serverURL = config.DefaultOllamaBaseURL
	}

	fmt.Fprintf(w.out, "%s正在检查已安装的模型...%s\n", colorYellow, colorReset)
	models, err := w.listModels(ctx, serverURL)
	switch {
	case err != nil:
		fmt.Fprintf(w.out, "  %s⚠ 无法连接 Ollama: %s%s\n", colorRed, err, colorReset)
	case len(models) == 0:
		fmt.Fprintf(w.out, "  %s⚠ 尚未安装模型，请运行: ollama pull %s%s\n", colorYellow, config.DefaultOllamaModel, colorReset)
	default:
		fmt.Fprintf(w.out, "  %s✓ 找到 %d 个模型:%s\n", colorGreen, len(models), colorReset)
		for i, m := range models {
			if i == 5 {
				fmt.Fprintf(w.out, "    • ... 以及另外 %d 个\n", len(models)-5)
				break
			}
			fmt.Fprintf(w.out, "    • %s\n", m)
		}
	}

	fmt.Fprintf(w.out, "\n%s模型名称 (回车使用 %s):%s ", colorGreen, config.DefaultOllamaModel, colorReset)
	modelName, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = config.DefaultOllamaModel
	}

	cfg := config.DefaultConfig()
	cfg.API.Provider = config.ProviderOllama
	cfg.API.OllamaBaseURL = serverURL
	cfg.Model.Name = modelName
	return w.save(cfg, "Ollama")
}

func (w *Wizard) save(cfg *config.Config, label string) (*config.Config, error) {
	if err := config.Save(cfg, w.configPath); err != nil {
		return nil, err
	}
	cfg.Path = w.configPath

	fmt.Fprintf(w.out, "\n%s✓ 已配置 %s!%s\n", colorGreen, label, colorReset)
	fmt.Fprintf(w.out, "  %s配置文件:%s %s\n", colorYellow, colorReset, w.configPath)
	fmt.Fprintf(w.out, "  %s模型:%s %s\n", colorYellow, colorReset, cfg.Model.Name)
	fmt.Fprintf(w.out, "\n运行 %svpnarch%s 开始生成指南。\n", colorBold, colorReset)
	return cfg, nil
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (w *Wizard) validateWithSpinner(ctx context.Context, apiKey string) error {
	done := make(chan struct{})
	var validationErr error
	go func() {
		defer close(done)
		validationErr = w.validate(ctx, apiKey)
	}()
	w.spin("正在校验 API 密钥...", done)
	return validationErr
}

func (w *Wizard) spin(message string, done <-chan struct{}) {
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	for i := 0; ; i++ {
		fmt.Fprintf(w.out, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], message)
		select {
		case <-done:
			fmt.Fprintf(w.out, "\r%s\r", strings.Repeat(" ", len(message)+10))
			return
		case <-ticker.C:
		}
	}
}

// ValidateGeminiKey tests a key by listing one model.
func ValidateGeminiKey(ctx context.Context, apiKey string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  apiKey,
	})
	if err != nil {
		return err
	}
	if _, err := client.Models.List(ctx, &genai.ListModelsConfig{PageSize: 1}); err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("invalid API key (HTTP %d %s)", apiErr.Code, apiErr.Status)
		}
		return fmt.Errorf("connection error: %w", err)
	}
	return nil
}

// ListOllamaModels returns the models installed on an Ollama server.
func ListOllamaModels(ctx context.Context, serverURL string) ([]string, error) {
	baseURL, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := api.NewClient(baseURL, http.DefaultClient)
	resp, err := client.List(ctx)
	if err != nil {
		return nil, err
	}

	models := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, m.Name)
	}
	return models, nil
}
