package observability

// Metric name prefixes
const (
	MetricPrefix = "goldenticket"
)

// Metric names
const (
	// Issuance metrics
	TicketsIssuedTotal    = MetricPrefix + ".tickets.issued_total"
	IssuanceRejectedTotal = MetricPrefix + ".tickets.rejected_total"

	// Settlement metrics
	DrawsSettledTotal = MetricPrefix + ".draws.settled_total"
	DrawWinnersTotal  = MetricPrefix + ".draws.winners_total"
	DrawTicketCount   = MetricPrefix + ".draws.ticket_count"
	DrawPotTotal      = MetricPrefix + ".draws.pot_total"
)

// Label keys
const (
	LabelPeriod = "period"
	LabelTier   = "tier"
	LabelReason = "reason"
	LabelEmpty  = "empty"
)
