package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/openpawz/pawgo/internal/config"
	"github.com/openpawz/pawgo/pkg/protocol"
)

// runClientMode talks to a running gateway process over its WebSocket
// endpoint, the same transport a UI client would use.
func runClientMode(cfg *config.Config, addr, agentName, message, sessionKey string) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to gateway: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := wsCall(conn, protocol.MethodConnect, map[string]string{"token": cfg.Gateway.Token}, nil); err != nil {
		fmt.Fprintf(os.Stderr, "handshake failed: %v\n", err)
		os.Exit(1)
	}

	if message != "" {
		sendAndPrint(conn, agentName, sessionKey, message)
		return
	}

	fmt.Println("Interactive chat. Type a message and press enter; Ctrl+D to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sendAndPrint(conn, agentName, sessionKey, line)
	}
}

func sendAndPrint(conn *websocket.Conn, agentName, sessionKey, message string) {
	var result struct {
		Content string `json:"content"`
	}
	err := wsCall(conn, protocol.MethodChatSend, map[string]interface{}{
		"agentId":    agentName,
		"sessionKey": sessionKey,
		"message":    message,
	}, &result)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chat.send failed: %v\n", err)
		return
	}
	fmt.Println(result.Content)
}

// wsCall sends one request frame and waits for the matching response,
// skipping any event frames that arrive in between.
func wsCall(conn *websocket.Conn, method string, params interface{}, out interface{}) error {
	paramsRaw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	id := uuid.NewString()
	req := protocol.Frame{Type: protocol.FrameTypeRequest, ID: id, Method: method, Params: paramsRaw}
	if err := conn.WriteJSON(req); err != nil {
		return err
	}

	for {
		var resp protocol.Frame
		if err := conn.ReadJSON(&resp); err != nil {
			return err
		}
		if resp.Type == protocol.FrameTypeEvent {
			continue
		}
		if resp.ID != id {
			continue
		}
		if resp.Error != nil {
			return resp.Error
		}
		if out != nil && len(resp.Result) > 0 {
			return json.Unmarshal(resp.Result, out)
		}
		return nil
	}
}
