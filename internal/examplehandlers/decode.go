package examplehandlers

import jsoniter "github.com/json-iterator/go"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func decodeJSON(body []byte, v any) error {
	return json.Unmarshal(body, v)
}
