package topics

const (
	// Resultados
	DrawResultsEntered = "draw_results_entered"

	// Apuração
	DrawSettled = "draw_settled"

	// DLQs
	DrawResultsEnteredDLQ = "draw_results_entered_dlq"
)

// Canal Redis Pub/Sub das atualizações de concurso (dashboard WebSocket)
const DrawUpdatesChannel = "draw_updates_broadcast"
