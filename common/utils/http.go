package utils

import (
	"encoding/json"
	"net/http"

	"github.com/civiclens/permit-crawler/common/models"
)

// WriteJSON writes a JSON response with the given status code and data
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	response := models.BaseResponse{
		Data: data,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// WriteError writes a JSON response with the given status code and error message
func WriteError(w http.ResponseWriter, statusCode int, errorMessage string) {
	response := models.ErrorResponse{
		Error: http.StatusText(statusCode),
		Msg:   errorMessage,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
