// memberctl es la herramienta operativa del gateway: lista usuarios y
// decide solicitudes de membresía contra la API admin, autenticándose con
// la API key operativa (X-Admin-API-Key).
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagAddr   string
	flagAPIKey string
)

func main() {
	root := &cobra.Command{
		Use:           "memberctl",
		Short:         "Administración del gateway de membresías",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagAddr, "addr", "http://localhost:8080", "dirección del gateway")
	root.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "API key admin (default: MEMBERHUB_ADMIN_API_KEY)")

	root.AddCommand(usersCmd(), applicationsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func apiKey() string {
	if flagAPIKey != "" {
		return flagAPIKey
	}
	return os.Getenv("MEMBERHUB_ADMIN_API_KEY")
}

// call hace el request contra la API admin y decodifica la respuesta en out.
func call(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, flagAddr+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	key := apiKey()
	if key == "" {
		return fmt.Errorf("falta la API key (--api-key o MEMBERHUB_ADMIN_API_KEY)")
	}
	req.Header.Set("X-Admin-API-Key", key)

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Message)
		}
		return fmt.Errorf("%s", resp.Status)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Cuentas del directorio"}

	list := &cobra.Command{
		Use:   "list",
		Short: "Lista cuentas activas",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Users []struct {
					ID          string `json:"id"`
					Provider    string `json:"provider"`
					Email       string `json:"email"`
					DisplayName string `json:"display_name"`
					Role        string `json:"role"`
				} `json:"users"`
			}
			if err := call(http.MethodGet, "/api/admin/users", nil, &resp); err != nil {
				return err
			}
			for _, u := range resp.Users {
				fmt.Printf("%s\t%s\t%-8s\t%s\t%s\n", u.ID, u.Provider, u.Role, u.Email, u.DisplayName)
			}
			return nil
		},
	}

	setRole := &cobra.Command{
		Use:   "set-role <user-id> <role>",
		Short: "Pisa el rol de una cuenta (GUEST|USER|MEMBER|ADMIN)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"role": args[1]}
			if err := call(http.MethodPut, "/api/admin/users/"+args[0]+"/role", body, nil); err != nil {
				return err
			}
			fmt.Println("rol actualizado")
			return nil
		},
	}

	cmd.AddCommand(list, setRole)
	return cmd
}

func applicationsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "applications", Short: "Solicitudes de membresía"}

	list := &cobra.Command{
		Use:   "list",
		Short: "Lista solicitudes pendientes",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Applications []struct {
					ID         string    `json:"id"`
					UserID     string    `json:"user_id"`
					Motivation string    `json:"motivation"`
					CreatedAt  time.Time `json:"created_at"`
				} `json:"applications"`
			}
			if err := call(http.MethodGet, "/api/admin/applications", nil, &resp); err != nil {
				return err
			}
			for _, a := range resp.Applications {
				fmt.Printf("%s\t%s\t%s\t%s\n", a.ID, a.UserID, a.CreatedAt.Format(time.RFC3339), a.Motivation)
			}
			return nil
		},
	}

	approve := &cobra.Command{
		Use:   "approve <application-id>",
		Short: "Aprueba una solicitud (promueve a MEMBER)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var app struct {
				Status string `json:"status"`
				UserID string `json:"user_id"`
			}
			if err := call(http.MethodPost, "/api/admin/applications/"+args[0]+"/approve", nil, &app); err != nil {
				return err
			}
			fmt.Printf("solicitud %s: %s (usuario %s)\n", args[0], app.Status, app.UserID)
			return nil
		},
	}

	var rejectReason string
	reject := &cobra.Command{
		Use:   "reject <application-id>",
		Short: "Rechaza una solicitud",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"reason": rejectReason}
			var app struct {
				Status string `json:"status"`
			}
			if err := call(http.MethodPost, "/api/admin/applications/"+args[0]+"/reject", body, &app); err != nil {
				return err
			}
			fmt.Printf("solicitud %s: %s\n", args[0], app.Status)
			return nil
		},
	}
	reject.Flags().StringVar(&rejectReason, "reason", "", "nota para el solicitante")

	cmd.AddCommand(list, approve, reject)
	return cmd
}
