package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type sessionData struct {
	Id string `json:"id"`
}

type documentData struct {
	Id     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type statusData struct {
	Processing          bool   `json:"processing"`
	CurrentDocumentName string `json:"current_document_name"`
	QueueDepth          int    `json:"queue_depth"`
}

type chatFragment struct {
	Content string   `json:"content"`
	Related []string `json:"related,omitempty"`
	Done    bool     `json:"done"`
}

func main() {
	color.Cyan("Chat-with-papers API simulation\n")

	// 1. Create session
	color.Yellow("\n[1] Create session")
	var session sessionData
	mustCall("POST", "/session/v1", nil, &session)
	color.Green("Session: %s", session.Id)

	// 2. Upload a small document
	color.Yellow("\n[2] Upload document")
	var doc documentData
	uploadFile(session.Id, "notes.pdf", []byte("Attention mechanisms let models weigh input tokens by relevance."), &doc)
	color.Green("Document queued: %s (%s)", doc.Id, doc.Status)

	// 3. Poll status until idle
	color.Yellow("\n[3] Poll ingestion status")
	for i := 0; i < 60; i++ {
		var st statusData
		mustCall("GET", "/status/v1/"+session.Id, nil, &st)
		fmt.Printf("  processing=%v current=%q queue_depth=%d\n", st.Processing, st.CurrentDocumentName, st.QueueDepth)
		if !st.Processing && st.QueueDepth == 0 {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}

	var docs struct {
		Documents []documentData `json:"documents"`
	}
	mustCall("GET", "/document/v1/"+session.Id, nil, &docs)
	for _, d := range docs.Documents {
		color.Green("Document %s: %s", d.Name, d.Status)
	}

	// 4. Chat
	color.Yellow("\n[4] Chat")
	streamChat(session.Id, "What do attention mechanisms do?")

	// 5. End session
	color.Yellow("\n[5] End session")
	mustCall("DELETE", "/session/v1/"+session.Id, nil, nil)
	color.Green("Session ended")
}

func mustCall(method, path string, body interface{}, out interface{}) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+path, bodyReader)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		color.Red("API Error %d: %s", resp.StatusCode, string(respBody))
		os.Exit(1)
	}

	if out == nil {
		return
	}
	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		color.Red("Bad response: %v", err)
		os.Exit(1)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		color.Red("Bad response data: %v", err)
		os.Exit(1)
	}
}

func uploadFile(sessionId, name string, content []byte, out interface{}) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", name)
	fw.Write(content)
	mw.Close()

	req, _ := http.NewRequest("POST", baseURL+"/document/v1/"+sessionId, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		color.Red("Upload failed: %v", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		color.Red("Upload error %d: %s", resp.StatusCode, string(respBody))
		os.Exit(1)
	}

	var env envelope
	json.Unmarshal(respBody, &env)
	json.Unmarshal(env.Data, out)
}

func streamChat(sessionId, message string) {
	jsonBody, _ := json.Marshal(map[string]string{"message": message})
	req, _ := http.NewRequest("POST", baseURL+"/chat/v1/"+sessionId, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		color.Red("Chat failed: %v", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	fmt.Printf("  USER: %s\n  AI:   ", message)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var frag chatFragment
		if err := json.Unmarshal(scanner.Bytes(), &frag); err != nil {
			continue
		}
		fmt.Print(frag.Content)
		if len(frag.Related) > 0 {
			color.Magenta("\n  related: %v", frag.Related)
		}
		if frag.Done {
			fmt.Println()
			break
		}
	}
}
