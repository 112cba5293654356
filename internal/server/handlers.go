// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"fmt"
	"net/http"

	"github.com/Tyrowin/chathub/internal/logging"
	"github.com/google/uuid"
)

// WebSocketHandler handles WebSocket upgrade requests and manages client connections.
// It validates that the request uses the GET method, upgrades the HTTP connection
// to WebSocket, assigns the connection a fresh identifier, and hands the client
// to the hub, which announces it and starts its read/write pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Str(logging.FieldRemoteAddr, r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}

	client := NewClient(uuid.NewString(), conn, s.hub, r.RemoteAddr)
	if !s.hub.Register(client) {
		_ = conn.Close()
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chat hub is running!")
}

// TestPageHandler serves an HTML page for trying the hub from a browser:
// pick a nickname, send messages, and list connected participants.
func TestPageHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPageHTML); err != nil {
		l := logging.Ctx(r.Context())
		l.Warn().Err(err).Msg("Error writing HTML response")
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Chat Hub Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { padding: 5px; margin-right: 10px; }
        #messageInput { width: 300px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
        .presence { color: #666; font-style: italic; }
        .error { color: #b00020; }
    </style>
</head>
<body>
    <h1>Chat Hub Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>
    <div id="count"></div>

    <div>
        <input type="text" id="usernameInput" placeholder="Nickname" maxlength="20">
        <input type="text" id="messageInput" placeholder="Type a message..." maxlength="500" disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
        <button id="usersButton" onclick="listUsers()" disabled>Users</button>
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>

    <div id="messages"></div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const messageInput = document.getElementById('messageInput');
        const usernameInput = document.getElementById('usernameInput');
        const sendButton = document.getElementById('sendButton');
        const usersButton = document.getElementById('usersButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');
        const countDiv = document.getElementById('count');

        function addLine(text, cls) {
            const el = document.createElement('div');
            el.className = cls || '';
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            messageInput.disabled = !connected;
            sendButton.disabled = !connected;
            usersButton.disabled = !connected;
            connectButton.textContent = connected ? 'Disconnect' : 'Connect';
        }

        function handle(frame) {
            const d = frame.data || {};
            switch (frame.event) {
            case 'status':
                addLine(d.msg, 'presence');
                countDiv.textContent = 'Users online: ' + d.user_count;
                break;
            case 'response':
                addLine('[' + d.timestamp + '] ' + d.username + ': ' + d.message);
                break;
            case 'user_list':
                addLine('Online (' + d.count + '): ' + d.users.map(u => u.nickname + ' #' + u.id).join(', '), 'presence');
                break;
            case 'error':
                addLine(d.msg, 'error');
                break;
            }
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = () => updateStatus(true);
            ws.onmessage = (event) => handle(JSON.parse(event.data));
            ws.onclose = () => { addLine('Connection closed', 'presence'); updateStatus(false); ws = null; };
            ws.onerror = () => updateStatus(false);
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function sendMessage() {
            const message = messageInput.value.trim();
            if (!message || !ws || ws.readyState !== WebSocket.OPEN) {
                return;
            }
            ws.send(JSON.stringify({event: 'message', data: {
                message: message,
                username: usernameInput.value.trim(),
                timestamp: new Date().toLocaleTimeString()
            }}));
            messageInput.value = '';
        }

        function listUsers() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({event: 'get_users'}));
            }
        }

        messageInput.addEventListener('keypress', (e) => {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
