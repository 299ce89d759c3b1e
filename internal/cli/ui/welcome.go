package ui

import (
	"fmt"
	"os"
)

// PrintWelcome выводит приветствие и лого
func PrintWelcome() {
	logoBytes, err := os.ReadFile("logo.txt")
	if err == nil {
		fmt.Println(ColorCyan + string(logoBytes) + ColorReset)
	}
	fmt.Println(ColorBold + IconTarget + " Lead-Agent v0.1.0" + ColorReset)
	fmt.Println(ColorGray + "Лидогенерация в Instagram: поиск, AI-оценка, DM-рассылка" + ColorReset)
	fmt.Println()
	PrintHelp()
	fmt.Println(ColorCyan + IconBulb + " Совет:" + ColorReset + " начните с " + ColorYellow + "campaigns" + ColorReset + ", затем " + ColorYellow + "run <id>" + ColorReset + " для поиска лидов")
	fmt.Println()
	fmt.Println(ColorGray + "⬆️ ⬇️" + ColorReset + " Используйте стрелки для навигации по истории команд")
	fmt.Println()
}

// PrintHelp выводит список доступных команд
func PrintHelp() {
	fmt.Println(ColorYellow + IconList + " Доступные команды:" + ColorReset)
	fmt.Println("  " + ColorGreen + "campaigns" + ColorReset + "             - Список кампаний")
	fmt.Println("  " + ColorGreen + "run" + ColorReset + " <id> [profile]   - Запустить кампанию (скан + AI-оценка)")
	fmt.Println("  " + ColorGreen + "leads" + ColorReset + " <campaign_id>  - Лиды кампании")
	fmt.Println("  " + ColorGreen + "draft" + ColorReset + " <lead_id>      - Сгенерировать черновики DM для лида")
	fmt.Println("  " + ColorGreen + "approve" + ColorReset + " <dm_id>      - Подтвердить черновик для отправки")
	fmt.Println("  " + ColorGreen + "compose" + ColorReset + " <lead_id> <текст> - Сохранить DM со своим текстом")
	fmt.Println("  " + ColorGreen + "send" + ColorReset + " <dm_id>         - Отправить подтвержденное DM")
	fmt.Println("  " + ColorGreen + "send-text" + ColorReset + " <dm_id>    - Отправить DM без вложений")
	fmt.Println("  " + ColorGreen + "inbox" + ColorReset + "                 - Проверить входящие всех аккаунтов")
	fmt.Println("  " + ColorGreen + "accounts" + ColorReset + "              - Состояние ротации аккаунтов")
	fmt.Println("  " + ColorGreen + "activity" + ColorReset + "              - Журнал активности")
	fmt.Println("  " + ColorGreen + "clear" + ColorReset + "                 - Очистить экран")
	fmt.Println("  " + ColorGreen + "exit" + ColorReset + "                  - Выход")
	fmt.Println()
}
