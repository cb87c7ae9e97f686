// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package user

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/taskboard/cmd/taskboard/cli"
	"github.com/bureau-foundation/taskboard/lib/schema/task"
)

func writeConfig(t *testing.T, adminRecipient string) string {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, "taskboard.yaml")
	content := `paths:
  root: ` + root + `
store:
  driver: sqlite
identity:
  id: ada
  name: Ada
  email: ada@example.com
  admin_emails: [ada@example.com]
  admin_recipient: ` + adminRecipient + `
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var output bytes.Buffer
	previous := cli.Output
	cli.Output = &output
	defer func() { cli.Output = previous }()
	if err := Command().Execute(args); err != nil {
		t.Fatalf("user %s: %v", strings.Join(args, " "), err)
	}
	return output.String()
}

func TestRegistrationFlow(t *testing.T) {
	configPath := writeConfig(t, "ada")

	if got := run(t, "whoami", "--config", configPath); got != "Ada (ada, admin)\n" {
		t.Errorf("whoami = %q", got)
	}
	if got := run(t, "whoami", "--config", configPath, "--user", "grace", "--user-email", "grace@example.com"); got != "grace@example.com (grace, member)\n" {
		t.Errorf("whoami as grace = %q", got)
	}

	var users []task.User
	if err := json.Unmarshal([]byte(run(t, "list", "--config", configPath, "--json")), &users); err != nil {
		t.Fatal(err)
	}
	approved := map[string]bool{}
	for _, user := range users {
		approved[user.ID] = user.Approved
	}
	if len(users) != 2 || !approved["ada"] || approved["grace"] {
		t.Errorf("users = %+v, want approved ada and unapproved grace", users)
	}

	var notifications []task.Notification
	if err := json.Unmarshal([]byte(run(t, "notifications", "--config", configPath, "--json")), &notifications); err != nil {
		t.Fatal(err)
	}
	if len(notifications) != 1 {
		t.Fatalf("notifications = %+v, want one", notifications)
	}
	notice := notifications[0]
	if notice.RelatedUserID != "grace" || notice.Kind != task.NotificationKindUserRegistration || notice.Read {
		t.Errorf("notice = %+v", notice)
	}
	if !strings.Contains(notice.Message, "grace@example.com") {
		t.Errorf("message = %q", notice.Message)
	}

	// Signing in again raises no second notice.
	run(t, "whoami", "--config", configPath, "--user", "grace")
	text := run(t, "notifications", "--config", configPath)
	if lines := strings.Split(strings.TrimSpace(text), "\n"); len(lines) != 2 || !strings.HasPrefix(lines[1], "grace") {
		t.Errorf("notifications after second sign-in:\n%s", text)
	}
}

func TestNotificationsDisabled(t *testing.T) {
	configPath := writeConfig(t, `""`)

	var output bytes.Buffer
	previous := cli.Output
	cli.Output = &output
	defer func() { cli.Output = previous }()
	err := Command().Execute([]string{"notifications", "--config", configPath})
	if err == nil || !strings.Contains(err.Error(), "admin_recipient") {
		t.Errorf("error = %v, want notifications disabled", err)
	}
}
