package ui

import "fmt"

// FormatLeadStatus возвращает иконку, цвет и текст для статуса лида
func FormatLeadStatus(status string) (icon, color, text string) {
	switch status {
	case "DISCOVERED":
		return IconTarget, ColorYellow, "найден"
	case "DM_SENT":
		return IconMail, ColorCyan, "DM отправлен"
	case "RESPONDED":
		return IconChat, ColorGreen, "ответил"
	default:
		return IconClock, ColorGray, status
	}
}

// FormatDmStatus возвращает иконку, цвет и текст для статуса DM-сообщения
func FormatDmStatus(status string) (icon, color, text string) {
	switch status {
	case "AI_GENERATED":
		return IconDocument, ColorYellow, "черновик AI"
	case "USER_EDITED":
		return IconDocument, ColorCyan, "отредактировано"
	case "APPROVED":
		return IconCheckmark, ColorGreen, "подтверждено"
	case "SENT":
		return IconMail, ColorGreen, "отправлено"
	case "FAILED":
		return IconCross, ColorRed, "ошибка"
	default:
		return IconClock, ColorGray, status
	}
}

// FormatAccountStatus возвращает иконку, цвет и текст для статуса аккаунта
func FormatAccountStatus(status string) (icon, color, text string) {
	switch status {
	case "ACTIVE":
		return IconCheckmark, ColorGreen, "активен"
	case "PAUSED":
		return IconClock, ColorYellow, "на паузе"
	case "COOLING":
		return IconClock, ColorCyan, "cooldown"
	case "BLOCKED":
		return IconLock, ColorRed, "заблокирован"
	default:
		return IconClock, ColorGray, status
	}
}

// ClearScreen очищает терминал
func ClearScreen() {
	fmt.Print("\033[H\033[2J")
}
