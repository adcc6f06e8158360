package crawler

// Classify partitions records into incomplete and completed, keeping order
func Classify(records []Record) (incomplete, completed []Record) {
	for _, r := range records {
		switch r.Classification() {
		case Completed:
			completed = append(completed, r)
		default:
			incomplete = append(incomplete, r)
		}
	}
	return incomplete, completed
}
