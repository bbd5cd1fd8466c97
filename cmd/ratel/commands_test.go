package main

import (
	"errors"
	"testing"

	"github.com/rickgao/ratel-client/internal/config"
	"github.com/rickgao/ratel-client/internal/protocol"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line     string
		wantCode int
		wantText string
		wantInt  int
		isInt    bool
	}{
		{line: "rooms", wantCode: protocol.CodeGetRooms},
		{line: "create", wantCode: protocol.CodeCreateRoom},
		{line: "join 3", wantCode: protocol.CodeJoinRoom, wantInt: 3, isInt: true},
		{line: "  WATCH 12 ", wantCode: protocol.CodeWatchRoom, wantInt: 12, isInt: true},
		{line: "play 3 4 5", wantCode: protocol.CodePlayPoker, wantText: "3 4 5"},
		{line: "pass", wantCode: protocol.CodePlayPass},
		{line: "exit", wantCode: protocol.CodeClientExitRequest},
		{line: "say hello there", wantCode: protocol.CodeChat, wantText: "hello there"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, err := parseCommand(tt.line)
			if err != nil {
				t.Fatalf("parseCommand(%q) error: %v", tt.line, err)
			}
			if cmd.local || cmd.quit {
				t.Fatalf("parseCommand(%q) = local/quit, want a message", tt.line)
			}
			if cmd.msg.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", cmd.msg.Code, tt.wantCode)
			}
			if tt.isInt {
				var n int
				if err := cmd.msg.DecodePayload(&n); err != nil || n != tt.wantInt {
					t.Errorf("payload = %s, want %d", cmd.msg.Payload, tt.wantInt)
				}
			}
			if tt.wantText != "" && cmd.msg.Text() != tt.wantText {
				t.Errorf("Text = %q, want %q", cmd.msg.Text(), tt.wantText)
			}
		})
	}
}

func TestParseCommand_Nickname(t *testing.T) {
	cmd, err := parseCommand("nickname  rick ")
	if err != nil {
		t.Fatalf("parseCommand error: %v", err)
	}
	if cmd.nickname != "rick" {
		t.Errorf("nickname = %q, want %q", cmd.nickname, "rick")
	}
	if cmd.msg.Code != protocol.CodeSetNickname || cmd.msg.Text() != "rick" {
		t.Errorf("msg = %+v, want set_nickname rick", cmd.msg)
	}

	if _, err := parseCommand("nickname waytoolongname"); !errors.Is(err, config.ErrInvalidNickname) {
		t.Errorf("long nickname error = %v, want ErrInvalidNickname", err)
	}
}

func TestParseCommand_Local(t *testing.T) {
	for _, line := range []string{"", "help", "status"} {
		cmd, err := parseCommand(line)
		if err != nil || !cmd.local || cmd.quit {
			t.Errorf("parseCommand(%q) = %+v, %v; want local", line, cmd, err)
		}
	}

	cmd, err := parseCommand("quit")
	if err != nil || !cmd.quit {
		t.Errorf("parseCommand(quit) = %+v, %v; want quit", cmd, err)
	}
}

func TestParseCommand_Errors(t *testing.T) {
	tests := []string{
		"dance",
		"join",
		"join abc",
		"watch -1",
		"play",
		"say",
	}
	for _, line := range tests {
		if _, err := parseCommand(line); err == nil {
			t.Errorf("parseCommand(%q) expected error", line)
		}
	}

	if _, err := parseCommand("dance"); !errors.Is(err, errUnknownCommand) {
		t.Errorf("unknown command error = %v, want errUnknownCommand", err)
	}
}
