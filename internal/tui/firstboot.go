package tui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cloudiagent/cloudiagent/internal/config"
)

// RunFirstBoot asks for the provider credentials and the Cloudinary account
// and writes them to config.yaml in cfg.ConfigDir.
func RunFirstBoot(cfg *config.Config, in io.Reader, out io.Writer) error {
	scan := bufio.NewScanner(in)
	ask := func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)
		if !scan.Scan() {
			if err := scan.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		return strings.TrimSpace(scan.Text()), nil
	}

	fmt.Fprintln(out, "Cloudi-Agent first run setup")
	fmt.Fprintln(out)

	f := &config.File{}
	provider, err := ask("Provider (openrouter/gemini) [openrouter]: ")
	if err != nil {
		return err
	}
	switch strings.ToLower(provider) {
	case "", config.ProviderOpenRouter:
		f.Provider = config.ProviderOpenRouter
		if f.OpenRouterAPIKey, err = ask("OpenRouter API key: "); err != nil {
			return err
		}
		if f.OpenRouterAPIKey == "" {
			return fmt.Errorf("API key is required")
		}
	case config.ProviderGemini:
		f.Provider = config.ProviderGemini
		if f.GeminiAPIKey, err = ask("Gemini API key: "); err != nil {
			return err
		}
		if f.GeminiAPIKey == "" {
			return fmt.Errorf("API key is required")
		}
	default:
		return fmt.Errorf("unknown provider %q", provider)
	}

	if f.Model, err = ask("Model (empty for the provider default): "); err != nil {
		return err
	}

	fmt.Fprintln(out)
	if f.CloudinaryCloudName, err = ask("Cloudinary cloud name: "); err != nil {
		return err
	}
	if f.CloudinaryCloudName == "" {
		return fmt.Errorf("cloud name is required")
	}
	if f.CloudinaryAPIKey, err = ask("Cloudinary API key (empty to disable tagging): "); err != nil {
		return err
	}
	if f.CloudinaryAPIKey != "" {
		if f.CloudinaryAPISecret, err = ask("Cloudinary API secret: "); err != nil {
			return err
		}
	}

	if err := config.SaveFile(cfg.ConfigDir, f); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintln(out, "Done. Config saved to", cfg.ConfigDir)
	return nil
}
