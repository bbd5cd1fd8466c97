package protocol

// Client event codes are pushed by the server and dispatched to handlers.
const (
	CodeClientNicknameSet = iota + 1
	CodeClientExit
	CodeClientKick
	CodeClientConnect
	CodeShowOptions
	CodeShowOptionsSetting
	CodeShowOptionsPVP
	CodeShowOptionsPVE
	CodeShowRooms
	CodeShowPokers
	CodeRoomCreateSuccess
	CodeRoomJoinSuccess
	CodeRoomJoinFailByFull
	CodeRoomJoinFailByInexist
	CodeRoomPlayFailByInexist
	CodeGameStarting
	CodeGameLandlordElect
	CodeGameLandlordConfirm
	CodeGameLandlordCycle
	CodeGamePokerPlay
	CodeGamePokerPlayRedirect
	CodeGamePokerPlayMismatch
	CodeGamePokerPlayLess
	CodeGamePokerPlayPass
	CodeGamePokerPlayCantPass
	CodeGamePokerPlayInvalid
	CodeGamePokerPlayOrderError
	CodeGameOver
	CodePVEDifficultyNotSupport
	CodeGameWatch
	CodeGameWatchSuccessful

	// CodeInteractiveStart and CodeInteractiveStop bracket prompts that expect input.
	CodeInteractiveStart
	CodeInteractiveStop

	// CodeHeartbeatAck echoes a heartbeat probe.
	CodeHeartbeatAck

	// CodeTextNotice carries free text from a frame that had no code.
	CodeTextNotice
)

// Text markers that legacy servers send in place of the interactive codes.
const (
	InteractiveSignalStart = "INTERACTIVE_SIGNAL_START"
	InteractiveSignalStop  = "INTERACTIVE_SIGNAL_STOP"
)

// Server event codes are sent by the client.
const (
	CodeHeartbeatProbe = iota + 100
	CodeSetNickname
	CodeGetRooms
	CodeCreateRoom
	CodeJoinRoom
	CodeWatchRoom
	CodePlayPoker
	CodePlayPass
	CodeClientExitRequest
	CodeChat
)

var codeNames = map[int]string{
	CodeClientNicknameSet:       "client_nickname_set",
	CodeClientExit:              "client_exit",
	CodeClientKick:              "client_kick",
	CodeClientConnect:           "client_connect",
	CodeShowOptions:             "show_options",
	CodeShowOptionsSetting:      "show_options_setting",
	CodeShowOptionsPVP:          "show_options_pvp",
	CodeShowOptionsPVE:          "show_options_pve",
	CodeShowRooms:               "show_rooms",
	CodeShowPokers:              "show_pokers",
	CodeRoomCreateSuccess:       "room_create_success",
	CodeRoomJoinSuccess:         "room_join_success",
	CodeRoomJoinFailByFull:      "room_join_fail_by_full",
	CodeRoomJoinFailByInexist:   "room_join_fail_by_inexist",
	CodeRoomPlayFailByInexist:   "room_play_fail_by_inexist",
	CodeGameStarting:            "game_starting",
	CodeGameLandlordElect:       "game_landlord_elect",
	CodeGameLandlordConfirm:     "game_landlord_confirm",
	CodeGameLandlordCycle:       "game_landlord_cycle",
	CodeGamePokerPlay:           "game_poker_play",
	CodeGamePokerPlayRedirect:   "game_poker_play_redirect",
	CodeGamePokerPlayMismatch:   "game_poker_play_mismatch",
	CodeGamePokerPlayLess:       "game_poker_play_less",
	CodeGamePokerPlayPass:       "game_poker_play_pass",
	CodeGamePokerPlayCantPass:   "game_poker_play_cant_pass",
	CodeGamePokerPlayInvalid:    "game_poker_play_invalid",
	CodeGamePokerPlayOrderError: "game_poker_play_order_error",
	CodeGameOver:                "game_over",
	CodePVEDifficultyNotSupport: "pve_difficulty_not_support",
	CodeGameWatch:               "game_watch",
	CodeGameWatchSuccessful:     "game_watch_successful",
	CodeInteractiveStart:        "interactive_start",
	CodeInteractiveStop:         "interactive_stop",
	CodeHeartbeatAck:            "heartbeat_ack",
	CodeTextNotice:              "text_notice",

	CodeHeartbeatProbe:    "heartbeat_probe",
	CodeSetNickname:       "set_nickname",
	CodeGetRooms:          "get_rooms",
	CodeCreateRoom:        "create_room",
	CodeJoinRoom:          "join_room",
	CodeWatchRoom:         "watch_room",
	CodePlayPoker:         "play_poker",
	CodePlayPass:          "play_pass",
	CodeClientExitRequest: "client_exit_request",
	CodeChat:              "chat",
}

// CodeName returns a readable name for logging, or "unknown".
func CodeName(code int) string {
	if name, ok := codeNames[code]; ok {
		return name
	}
	return "unknown"
}
