package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
)

func respondJSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)

	if err := json.NewEncoder(writer).Encode(payload); err != nil {
		log.Printf("httpapi: response encode: %v", err)
	}
}

func respondError(writer http.ResponseWriter, status int, message string) {
	respondJSON(writer, status, map[string]string{"error": message})
}

func respondInternalServerError(writer http.ResponseWriter, err error) {
	log.Printf("httpapi: internal error: %+v", err)
	respondError(writer, http.StatusInternalServerError, "internal server error")
}
