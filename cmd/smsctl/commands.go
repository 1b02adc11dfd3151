package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wolfman30/sms-router/internal/app/bootstrap"
	appconfig "github.com/wolfman30/sms-router/internal/config"
	"github.com/wolfman30/sms-router/internal/http/middleware"
	"github.com/wolfman30/sms-router/internal/messaging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "smsctl",
		Short:        "Operator tooling for the SMS router",
		SilenceUsage: true,
	}
	root.AddCommand(signCmd())
	root.AddCommand(sendCmd())
	root.AddCommand(classifyCmd())
	root.AddCommand(tokenCmd())
	return root
}

func signCmd() *cobra.Command {
	var webhookURL, secret string
	cmd := &cobra.Command{
		Use:   "sign key=value...",
		Short: "Print the webhook signature for a set of form parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), messaging.ComputeSignature(secret, webhookURL, params))
			return nil
		},
	}
	cmd.Flags().StringVar(&webhookURL, "url", "", "public webhook URL the signature covers")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("TWILIO_WEBHOOK_SECRET"), "webhook signing secret")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func sendCmd() *cobra.Command {
	var webhookURL, secret, from, body string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Post a signed inbound SMS to a running router and print the TwiML reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			form := url.Values{
				"MessageSid": {"SMcli" + strings.ReplaceAll(uuid.NewString(), "-", "")},
				"From":       {from},
				"Body":       {body},
			}
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, webhookURL, strings.NewReader(form.Encode()))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if secret != "" {
				req.Header.Set(messaging.SignatureHeader, messaging.ComputeSignature(secret, webhookURL, form))
			}

			resp, err := (&http.Client{Timeout: timeout}).Do(req)
			if err != nil {
				return fmt.Errorf("send: %w", err)
			}
			defer resp.Body.Close()
			out, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("send: read reply: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("send: router returned %d: %s", resp.StatusCode, strings.TrimSpace(string(out)))
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(out)))
			return nil
		},
	}
	cmd.Flags().StringVar(&webhookURL, "url", "http://localhost:8080/messaging/twilio/webhook", "router webhook URL")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("TWILIO_WEBHOOK_SECRET"), "webhook signing secret")
	cmd.Flags().StringVar(&from, "from", "", "sender phone in E.164 form")
	cmd.Flags().StringVar(&body, "body", "", "message body")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func classifyCmd() *cobra.Command {
	var policyFile string
	cmd := &cobra.Command{
		Use:   "classify TEXT",
		Short: "Run the message processor on TEXT and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proc, err := bootstrap.BuildProcessor(&appconfig.Config{SpamPolicyFile: policyFile})
			if err != nil {
				return err
			}
			res, err := proc.Process(args[0], nil)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&policyFile, "policy", os.Getenv("SPAM_POLICY_FILE"), "spam policy YAML file")
	return cmd
}

func tokenCmd() *cobra.Command {
	var secret, subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the /admin endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("token: --secret or ADMIN_JWT_SECRET is required")
			}
			token, err := middleware.IssueAdminToken(secret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("ADMIN_JWT_SECRET"), "admin signing secret")
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func parseParams(args []string) (url.Values, error) {
	params := url.Values{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", arg)
		}
		params.Add(key, value)
	}
	return params, nil
}
