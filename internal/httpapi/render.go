package httpapi

import (
	"encoding/json"
	"net/http"
)

type detail struct {
	Detail string `json:"detail"`
}

func renderJSON(w http.ResponseWriter, v interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

func renderDetail(w http.ResponseWriter, msg string, status int) {
	renderJSON(w, detail{Detail: msg}, status)
}
