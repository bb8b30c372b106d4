package ghio

import "strconv"

// Propiedades generadas por el decoder a partir de la submascara GPS.
const (
	GsmCellID     = 200
	SignalQuality = 201
	OperatorCode  = 202
)

var names = map[uint8]string{
	GsmCellID:     "gsm_cell_id",
	SignalQuality: "signal_quality",
	OperatorCode:  "operator_code",
}

// Name devuelve un nombre legible para el id, o el id en decimal.
func Name(id uint8) string {
	if n, ok := names[id]; ok {
		return n
	}
	return strconv.Itoa(int(id))
}

// Synthetic es true para los ids que no vienen de un bloque IO.
func Synthetic(id uint8) bool {
	_, ok := names[id]
	return ok
}
