package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/InkyQuill/gitlab-mr-review-mcp/pkg/config"
	"github.com/InkyQuill/gitlab-mr-review-mcp/pkg/installer"
)

func main() {
	fmt.Println("=== GitLab MR Review MCP Server Installer ===")
	fmt.Println()

	projectRoot, err := installer.GetProjectRoot()
	if err != nil {
		fatalf("Failed to get project root: %v", err)
	}

	prompter := installer.NewPrompter(os.Stdin, os.Stdout)

	promptConfig, err := prompter.PromptUser()
	if err != nil {
		fatalf("%v", err)
	}

	binaryConfig, err := installer.GetBinaryConfig(promptConfig.Mode, projectRoot)
	if err != nil {
		fatalf("%v", err)
	}

	if promptConfig.StoreInKeyring {
		u, err := url.Parse(promptConfig.GitLabURL)
		if err != nil {
			fatalf("%v", err)
		}
		if err := config.StoreToken(u.Hostname(), promptConfig.Token); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("Token stored in the OS keyring (service %q, user %q)\n", config.KeyringService, u.Hostname())
	}

	serverConfig := installer.CreateServerConfig(binaryConfig, promptConfig)

	environments, err := prompter.PromptEnvironments()
	if err != nil {
		fatalf("%v", err)
	}

	paths := installer.GetConfigPaths()

	successCount := 0
	for _, env := range environments {
		fmt.Printf("\nConfiguring %s...\n", env)
		if err := installer.UpdateConfig(env, paths, serverConfig); err != nil {
			fmt.Fprintf(os.Stderr, "  Error configuring %s: %v\n", env, err)
		} else {
			fmt.Printf("  ✓ %s configured successfully\n", env)
			successCount++
		}
	}

	fmt.Println()
	if successCount == 0 {
		fmt.Println("No environments were configured successfully.")
		os.Exit(1)
	}

	fmt.Printf("Successfully configured %d environment(s)!\n", successCount)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Restart your development environment(s)")
	fmt.Printf("2. The MCP server will be available as '%s'\n", installer.ServerName)
	if promptConfig.Mode == "local" {
		fmt.Println("3. Make sure the binary exists at:", binaryConfig.LocalPath)
	} else {
		fmt.Printf("3. Make sure the Docker image exists: docker build -t %s .\n", installer.DockerImage)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
