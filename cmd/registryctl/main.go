// Command registryctl is an admin CLI for the skills registry: publishing
// bundles, searching, and inspecting the server's environment variables.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentskills/registry/pkg/regenv"
)

type cliConfig struct {
	APIURL string
	Token  string
}

func main() {
	cfg := &cliConfig{}

	rootCmd := &cobra.Command{
		Use:   "registryctl",
		Short: "registryctl is an admin CLI for the skills registry",
	}
	rootCmd.PersistentFlags().StringVar(&cfg.APIURL, "api-url", envOr("REGISTRYCTL_URL", "http://localhost:8080/v1"), "Registry API URL")
	rootCmd.PersistentFlags().StringVar(&cfg.Token, "token", os.Getenv("REGISTRYCTL_TOKEN"), "Registry API token")

	publishCmd := &cobra.Command{
		Use:   "publish [bundle.tar.gz]",
		Short: "Publish a skill bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, _ := cmd.Flags().GetString("category")
			providers, _ := cmd.Flags().GetString("providers")
			return publishBundle(cfg, args[0], category, providers)
		},
	}
	publishCmd.Flags().String("category", "", "Category to assign to the skill")
	publishCmd.Flags().String("providers", "", "Comma-separated provider override")

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search published skills",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := ""
			if len(args) > 0 {
				q = args[0]
			}
			return searchSkills(cfg, q)
		},
	}

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Print the registry's environment variable registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			return printEnv(format)
		},
	}
	envCmd.Flags().String("format", "markdown", "Output format: markdown or json")

	rootCmd.AddCommand(publishCmd, searchCmd, envCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func publishBundle(cfg *cliConfig, path, category, providers string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening bundle: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	if category != "" {
		if err := writer.WriteField("category", category); err != nil {
			return err
		}
	}
	if providers != "" {
		if err := writer.WriteField("providers", providers); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, cfg.APIURL+"/skills/publish", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+cfg.Token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("publishing bundle: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("publish failed: %s: %s", resp.Status, string(respBody))
	}
	fmt.Println(string(respBody))
	return nil
}

func searchSkills(cfg *cliConfig, query string) error {
	req, err := http.NewRequest(http.MethodGet, cfg.APIURL+"/skills?q="+query, nil)
	if err != nil {
		return err
	}
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	if _, err := io.Copy(&out, resp.Body); err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out.Bytes(), "", "  "); err != nil {
		fmt.Println(out.String())
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}

func printEnv(format string) error {
	switch format {
	case "json":
		data, err := regenv.ExportJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	default:
		fmt.Println(regenv.ExportMarkdown())
	}
	return nil
}
