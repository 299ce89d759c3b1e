package browser

import (
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// Селекторы известных наложенных окон Instagram: предложение включить
// уведомления, «сохранить данные входа» и cookie-баннер. Любое из них
// перехватывает клики, поэтому закрываем сразу после навигации.
var popupDismissSelectors = []string{
	`div[role="dialog"] button:has-text("稍後再說")`,
	`div[role="dialog"] button:has-text("Not Now")`,
	`div[role="dialog"] button:has-text("Not now")`,
	`button:has-text("允許所有 Cookie")`,
	`button:has-text("Allow all cookies")`,
}

// dismissPopups закрывает известные попапы. Отсутствие попапа — норма,
// ошибки здесь не фатальны.
func (d *Driver) dismissPopups(page playwright.Page) {
	for _, sel := range popupDismissSelectors {
		loc := page.Locator(sel)
		visible, err := loc.IsVisible()
		if err != nil || !visible {
			continue
		}
		if err := loc.Click(playwright.LocatorClickOptions{
			Timeout: playwright.Float(2000),
		}); err != nil {
			d.log.Debug("не удалось закрыть попап", zap.String("selector", sel), zap.Error(err))
			continue
		}
		d.log.Debug("попап закрыт", zap.String("selector", sel))
	}
}
