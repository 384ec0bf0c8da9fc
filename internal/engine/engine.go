package engine

// TruncateStr trunca un string a maxLen caracteres añadiendo "..." si hace
// falta. Para logs compactos de títulos de mercado.
func TruncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
