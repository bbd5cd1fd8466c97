package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rickgao/ratel-client/internal/config"
	"github.com/rickgao/ratel-client/internal/protocol"
)

var errUnknownCommand = errors.New("unknown command")

// command is one parsed stdin line.
type command struct {
	msg      protocol.Message
	nickname string // Set by the nickname command
	quit     bool
	local    bool // Handled without sending anything
}

const usage = `commands:
  nickname <name>   set and announce your nickname
  rooms             list rooms
  create            create a room
  join <id>         join a room
  watch <id>        watch a room
  play <cards>      play cards
  pass              pass this turn
  exit              leave the room
  say <text>        chat
  status            show connection status
  help              show this help
  quit              disconnect and exit`

// parseCommand maps a stdin line to an outbound message.
func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "":
		return command{local: true}, nil

	case "help", "status":
		return command{local: true}, nil

	case "quit":
		return command{quit: true, local: true}, nil

	case "nickname", "nick":
		nick, err := config.NormalizeNickname(arg)
		if err != nil {
			return command{}, err
		}
		msg, err := protocol.NewMessage(protocol.CodeSetNickname, nick)
		return command{msg: msg, nickname: nick}, err

	case "rooms":
		return simple(protocol.CodeGetRooms)

	case "create":
		return simple(protocol.CodeCreateRoom)

	case "join":
		return withRoom(protocol.CodeJoinRoom, arg)

	case "watch":
		return withRoom(protocol.CodeWatchRoom, arg)

	case "play":
		if arg == "" {
			return command{}, errors.New("play: no cards given")
		}
		msg, err := protocol.NewMessage(protocol.CodePlayPoker, arg)
		return command{msg: msg}, err

	case "pass":
		return simple(protocol.CodePlayPass)

	case "exit":
		return simple(protocol.CodeClientExitRequest)

	case "say":
		if arg == "" {
			return command{}, errors.New("say: empty message")
		}
		msg, err := protocol.NewMessage(protocol.CodeChat, arg)
		return command{msg: msg}, err

	default:
		return command{}, fmt.Errorf("%w %q, try help", errUnknownCommand, name)
	}
}

func simple(code int) (command, error) {
	msg, err := protocol.NewMessage(code, nil)
	return command{msg: msg}, err
}

func withRoom(code int, arg string) (command, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 0 {
		return command{}, fmt.Errorf("%s: room id must be a number, got %q", protocol.CodeName(code), arg)
	}
	msg, err := protocol.NewMessage(code, id)
	return command{msg: msg}, err
}
