package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rickgao/ratel-client/internal/dispatch"
	"github.com/rickgao/ratel-client/internal/protocol"
	"github.com/rickgao/ratel-client/internal/session"
)

// Builtin returns the default handler set.
func Builtin() []dispatch.Handler {
	hs := []dispatch.Handler{
		dispatch.Func(protocol.CodeClientConnect, ClientConnect),
		dispatch.Func(protocol.CodeClientNicknameSet, NicknameSet),
		dispatch.Func(protocol.CodeClientExit, ClientExit),
		dispatch.Func(protocol.CodeClientKick, ClientKick),
		dispatch.Func(protocol.CodeGameWatch, GameWatch),
		dispatch.Func(protocol.CodeGameWatchSuccessful, GameWatchSuccessful),
		dispatch.Func(protocol.CodeShowPokers, ShowPokers),
		dispatch.Func(protocol.CodeGamePokerPlayPass, PokerPass),
		dispatch.Func(protocol.CodeGameOver, GameOver),
		dispatch.Func(protocol.CodeRoomCreateSuccess, RoomEntered),
		dispatch.Func(protocol.CodeRoomJoinSuccess, RoomEntered),
		dispatch.Func(protocol.CodeInteractiveStart, InteractiveStart),
		dispatch.Func(protocol.CodeInteractiveStop, InteractiveStop),
		dispatch.Func(protocol.CodeHeartbeatAck, HeartbeatAck),
	}
	for _, code := range noticeCodes {
		hs = append(hs, dispatch.Func(code, Notice))
	}
	return append(hs, Introspection()...)
}

// noticeCodes only render their text.
var noticeCodes = []int{
	protocol.CodeShowOptions,
	protocol.CodeShowOptionsSetting,
	protocol.CodeShowOptionsPVP,
	protocol.CodeShowOptionsPVE,
	protocol.CodeShowRooms,
	protocol.CodeRoomJoinFailByFull,
	protocol.CodeRoomJoinFailByInexist,
	protocol.CodeRoomPlayFailByInexist,
	protocol.CodeGameStarting,
	protocol.CodeGameLandlordElect,
	protocol.CodeGameLandlordConfirm,
	protocol.CodeGameLandlordCycle,
	protocol.CodeGamePokerPlay,
	protocol.CodeGamePokerPlayRedirect,
	protocol.CodeGamePokerPlayMismatch,
	protocol.CodeGamePokerPlayLess,
	protocol.CodeGamePokerPlayCantPass,
	protocol.CodeGamePokerPlayInvalid,
	protocol.CodeGamePokerPlayOrderError,
	protocol.CodePVEDifficultyNotSupport,
	protocol.CodeTextNotice,
}

// Introspection returns descriptors for components that are listed but never
// dispatched.
func Introspection() []dispatch.Handler {
	return []dispatch.Handler{
		dispatch.Descriptor{Name: "panel"},
		dispatch.Descriptor{Name: "poker-layout"},
	}
}

// ClientConnect assigns the client id chosen by the server. The payload is
// either a bare number or {"clientId": n}.
func ClientConnect(_ context.Context, c dispatch.Client, sink dispatch.Sink, msg protocol.Message) error {
	id, err := parseClientID(msg)
	if err != nil {
		return err
	}

	c.UpdateSession(func(s *session.Session) { s.ClientID = id })
	sink.Append(fmt.Sprintf("Connected to server, client id %d", id))
	return nil
}

func parseClientID(msg protocol.Message) (int, error) {
	var id int
	if err := msg.DecodePayload(&id); err == nil {
		return id, nil
	}

	var obj struct {
		ClientID *int `json:"clientId"`
	}
	if err := msg.DecodePayload(&obj); err == nil && obj.ClientID != nil {
		return *obj.ClientID, nil
	}

	if n, err := strconv.Atoi(strings.TrimSpace(msg.Text())); err == nil {
		return n, nil
	}
	return 0, fmt.Errorf("client connect: no client id in %q", msg.Payload)
}

// NicknameSet is the server asking for a nickname. A nickname already held
// by the session is sent back without prompting.
func NicknameSet(ctx context.Context, c dispatch.Client, sink dispatch.Sink, msg protocol.Message) error {
	var req struct {
		InvalidLength int `json:"invalidLength"`
	}
	_ = msg.DecodePayload(&req)

	if req.InvalidLength > 0 {
		sink.Append(fmt.Sprintf("Nickname too long (%d), please choose another", req.InvalidLength))
		c.UpdateSession(func(s *session.Session) { s.User.Nickname = "" })
		return nil
	}

	nickname := c.Session().User.Nickname
	if nickname == "" {
		sink.Append("Please set your nickname")
		return nil
	}

	out, err := protocol.NewMessage(protocol.CodeSetNickname, nickname)
	if err != nil {
		return err
	}
	if _, err := c.Send(ctx, out); err != nil {
		return fmt.Errorf("send nickname: %w", err)
	}
	return nil
}

type exitPayload struct {
	ExitClientNickname string `json:"exitClientNickname"`
}

// ClientExit clears the room when a player leaves it.
func ClientExit(_ context.Context, c dispatch.Client, sink dispatch.Sink, msg protocol.Message) error {
	var p exitPayload
	_ = msg.DecodePayload(&p)

	c.UpdateSession(func(s *session.Session) { s.Room = session.RoomFacts{} })

	if p.ExitClientNickname != "" {
		sink.Append(p.ExitClientNickname + " left the room, the room is closed")
	} else {
		sink.Append("The room is closed")
	}
	return nil
}

// ClientKick clears the room and watch state after an idle kick.
func ClientKick(_ context.Context, c dispatch.Client, sink dispatch.Sink, _ protocol.Message) error {
	c.UpdateSession(func(s *session.Session) {
		s.Room = session.RoomFacts{}
		s.User.Watching = false
	})
	sink.Append("You have been kicked from the room for being idle")
	return nil
}

// GameWatch renders an event relayed to a spectator.
func GameWatch(_ context.Context, c dispatch.Client, sink dispatch.Sink, msg protocol.Message) error {
	if !c.Session().User.Watching {
		c.UpdateSession(func(s *session.Session) { s.User.Watching = true })
	}
	if text := msg.Text(); text != "" {
		sink.Append(text)
	}
	return nil
}

// GameWatchSuccessful marks the session as spectating.
func GameWatchSuccessful(_ context.Context, c dispatch.Client, sink dispatch.Sink, msg protocol.Message) error {
	var p struct {
		Owner string `json:"owner"`
	}
	_ = msg.DecodePayload(&p)

	c.UpdateSession(func(s *session.Session) { s.User.Watching = true })

	if p.Owner != "" {
		sink.Append("Watching the room of " + p.Owner)
	} else {
		sink.Append("Watching the room")
	}
	return nil
}

type playPayload struct {
	ClientNickname string          `json:"clientNickname"`
	ClientType     string          `json:"clientType"`
	Pokers         json.RawMessage `json:"pokers"`
}

// ShowPokers records the last play in the room facts.
func ShowPokers(_ context.Context, c dispatch.Client, sink dispatch.Sink, msg protocol.Message) error {
	var p playPayload
	if err := msg.DecodePayload(&p); err != nil {
		return err
	}

	c.UpdateSession(func(s *session.Session) {
		s.Room.LastSellerNickname = p.ClientNickname
		s.Room.LastSellerType = p.ClientType
		if len(p.Pokers) > 0 {
			s.Room.LastPokers = p.Pokers
		}
	})

	sink.Append(fmt.Sprintf("%s[%s] played: %s", p.ClientNickname, p.ClientType, p.Pokers))
	return nil
}

// PokerPass renders a pass. The room facts keep the play being answered.
func PokerPass(_ context.Context, _ dispatch.Client, sink dispatch.Sink, msg protocol.Message) error {
	var p playPayload
	_ = msg.DecodePayload(&p)

	if p.ClientNickname != "" {
		sink.Append(p.ClientNickname + " passed")
	} else {
		sink.Append("Passed")
	}
	return nil
}

// GameOver announces the winner and clears the room facts.
func GameOver(_ context.Context, c dispatch.Client, sink dispatch.Sink, msg protocol.Message) error {
	var p struct {
		WinnerNickname string `json:"winnerNickname"`
		WinnerType     string `json:"winnerType"`
	}
	_ = msg.DecodePayload(&p)

	c.UpdateSession(func(s *session.Session) {
		s.Room = session.RoomFacts{}
		s.User.Watching = false
	})

	if p.WinnerNickname != "" {
		sink.Append(fmt.Sprintf("Player %s[%s] won the game", p.WinnerNickname, p.WinnerType))
	} else {
		sink.Append("Game over")
	}
	return nil
}

// RoomEntered resets room facts left from a previous room.
func RoomEntered(_ context.Context, c dispatch.Client, sink dispatch.Sink, msg protocol.Message) error {
	c.UpdateSession(func(s *session.Session) { s.Room = session.RoomFacts{} })
	if text := msg.Text(); text != "" {
		sink.Append(text)
	}
	return nil
}

// InteractiveStart marks the server as waiting for input.
func InteractiveStart(_ context.Context, c dispatch.Client, _ dispatch.Sink, _ protocol.Message) error {
	c.UpdateSession(func(s *session.Session) { s.Interactive = true })
	return nil
}

// InteractiveStop clears the waiting-for-input flag.
func InteractiveStop(_ context.Context, c dispatch.Client, _ dispatch.Sink, _ protocol.Message) error {
	c.UpdateSession(func(s *session.Session) { s.Interactive = false })
	return nil
}

// HeartbeatAck answers the armed heartbeat probe.
func HeartbeatAck(_ context.Context, c dispatch.Client, _ dispatch.Sink, msg protocol.Message) error {
	var p protocol.Probe
	if err := msg.DecodePayload(&p); err != nil {
		return err
	}
	if !c.AckHeartbeat(p.SentAt) {
		return fmt.Errorf("heartbeat ack %d matches no outstanding probe", p.SentAt)
	}
	return nil
}

// Notice forwards the message text to the sink, falling back to the info
// string when there is no payload.
func Notice(_ context.Context, _ dispatch.Client, sink dispatch.Sink, msg protocol.Message) error {
	text := msg.Text()
	if text == "" && msg.Info != nil {
		text = *msg.Info
	}
	if text != "" {
		sink.Append(text)
	}
	return nil
}
